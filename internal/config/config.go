// Package config loads taskpilot configuration.
//
// Values are resolved in the usual viper order: explicit Set, environment
// (TASKPILOT_ prefix, dots become underscores), config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is the complete application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

// LLMConfig describes the upstream language-model endpoint.
type LLMConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AgentConfig bounds the conversational pipeline.
type AgentConfig struct {
	MaxUtteranceLength int    `mapstructure:"max_utterance_length"`
	HistoryWindow      int    `mapstructure:"history_window"`
	FallbackRules      string `mapstructure:"fallback_rules"`
}

// RateLimitConfig configures per-user request windows.
type RateLimitConfig struct {
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Window            time.Duration `mapstructure:"window"`
	Backend           string        `mapstructure:"backend"`
}

// StorageConfig locates the SQLite databases.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LLM: LLMConfig{
			Endpoint: "http://localhost:8000/v1/responses",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
		},
		Agent: AgentConfig{
			MaxUtteranceLength: 2000,
			HistoryWindow:      10,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 20,
			Window:            time.Minute,
			Backend:           BackendSQLite,
		},
		Storage: StorageConfig{
			DataDir: filepath.Join(home, ".taskpilot"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (optional), the environment and defaults.
// A missing file at the default search locations is not an error; an explicit
// path that cannot be read is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskpilot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.taskpilot")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.LLM.Model) == "":
		return fmt.Errorf("invalid config: llm.model is required")
	case c.LLM.Timeout <= 0:
		return fmt.Errorf("invalid config: llm.timeout must be positive")
	case c.Agent.MaxUtteranceLength <= 0:
		return fmt.Errorf("invalid config: agent.max_utterance_length must be positive")
	case c.Agent.HistoryWindow < 0:
		return fmt.Errorf("invalid config: agent.history_window cannot be negative")
	case c.RateLimit.RequestsPerMinute <= 0:
		return fmt.Errorf("invalid config: ratelimit.requests_per_minute must be positive")
	case c.RateLimit.Window <= 0:
		return fmt.Errorf("invalid config: ratelimit.window must be positive")
	case c.RateLimit.Backend != BackendMemory && c.RateLimit.Backend != BackendSQLite:
		return fmt.Errorf("invalid config: ratelimit.backend %q (must be %s or %s)",
			c.RateLimit.Backend, BackendMemory, BackendSQLite)
	case strings.TrimSpace(c.Storage.DataDir) == "":
		return fmt.Errorf("invalid config: storage.data_dir is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.token", d.LLM.Token)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("agent.max_utterance_length", d.Agent.MaxUtteranceLength)
	v.SetDefault("agent.history_window", d.Agent.HistoryWindow)
	v.SetDefault("agent.fallback_rules", d.Agent.FallbackRules)
	v.SetDefault("ratelimit.requests_per_minute", d.RateLimit.RequestsPerMinute)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)
	v.SetDefault("ratelimit.backend", d.RateLimit.Backend)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}
