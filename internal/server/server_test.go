package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/taskpilot/internal/agent"
	"github.com/HendryAvila/taskpilot/internal/config"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.RateLimit.Backend = backend
	// Nothing listens here; these tests never reach the model.
	cfg.LLM.Endpoint = "http://127.0.0.1:1/v1/responses"
	cfg.LLM.Timeout = time.Second
	return cfg
}

func TestWire(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			app, cleanup, err := Wire(testConfig(t, backend), zerolog.Nop(), workspace.User{Name: "Анна"})
			if err != nil {
				t.Fatalf("Wire: %v", err)
			}
			defer cleanup()

			if app.User.ID == 0 || app.User.Name != "Анна" {
				t.Errorf("user = %+v", app.User)
			}
			if len(app.Registry.Names()) == 0 {
				t.Error("registry is empty")
			}

			// Input checks run before any model call.
			res := app.Agent.ProcessRequest(context.Background(), agent.Request{Utterance: "  ", User: app.User})
			if res.Success || !agent.IsInputError(res.Err) {
				t.Errorf("result = %+v", res)
			}

			if s := NewMCPServer(app); s == nil {
				t.Error("NewMCPServer returned nil")
			}
		})
	}
}

func TestWire_SameUserTwice(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)

	app, cleanup, err := Wire(cfg, zerolog.Nop(), workspace.User{Name: "Анна"})
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	first := app.User
	cleanup()

	app, cleanup, err = Wire(cfg, zerolog.Nop(), workspace.User{Name: "Анна"})
	if err != nil {
		t.Fatalf("Wire again: %v", err)
	}
	defer cleanup()
	if app.User.ID != first.ID {
		t.Errorf("user id = %d, want %d", app.User.ID, first.ID)
	}
}

func TestWire_BadFallbackRules(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Agent.FallbackRules = cfg.Storage.DataDir + "/missing.yaml"

	_, cleanup, err := Wire(cfg, zerolog.Nop(), workspace.User{Name: "Анна"})
	cleanup()
	if err == nil || !strings.Contains(err.Error(), "fallback rules") {
		t.Errorf("err = %v", err)
	}
}

func TestNew_RejectsUserWithoutIdentity(t *testing.T) {
	_, cleanup, err := New(testConfig(t, config.BackendMemory), zerolog.Nop(), workspace.User{})
	cleanup()
	if err == nil {
		t.Error("expected error for a user with neither id nor name")
	}
}

func TestServerInstructions(t *testing.T) {
	text := serverInstructions()
	for _, want := range []string{"agent_ask", "conversation_id", "taskpilot://commands"} {
		if !strings.Contains(text, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}
