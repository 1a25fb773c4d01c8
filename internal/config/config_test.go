package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Default ---

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2000, cfg.Agent.MaxUtteranceLength)
	assert.Equal(t, 10, cfg.Agent.HistoryWindow)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, BackendSQLite, cfg.RateLimit.Backend)
}

// --- Load ---

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskpilot.yaml")
	content := `
llm:
  endpoint: https://llm.example.com/v1/responses
  token: secret
  model: test-model
  timeout: 5s
agent:
  max_utterance_length: 500
  history_window: 4
ratelimit:
  requests_per_minute: 3
  backend: memory
storage:
  data_dir: ` + dir + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://llm.example.com/v1/responses", cfg.LLM.Endpoint)
	assert.Equal(t, "secret", cfg.LLM.Token)
	assert.Equal(t, "test-model", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 500, cfg.Agent.MaxUtteranceLength)
	assert.Equal(t, 4, cfg.Agent.HistoryWindow)
	assert.Equal(t, 3, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window, "unset keys keep defaults")
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, dir, cfg.Storage.DataDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0o644))

	t.Setenv("TASKPILOT_LLM_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValueRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ratelimit:\n  backend: redis\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratelimit.backend")
}

// --- Validate ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty model", func(c *Config) { c.LLM.Model = " " }, "llm.model"},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }, "llm.timeout"},
		{"zero utterance length", func(c *Config) { c.Agent.MaxUtteranceLength = 0 }, "max_utterance_length"},
		{"negative history", func(c *Config) { c.Agent.HistoryWindow = -1 }, "history_window"},
		{"zero rpm", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, "requests_per_minute"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "ratelimit.window"},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, "data_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
