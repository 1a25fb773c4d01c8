package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/taskpilot/internal/workspace"
)

func TestParseUser(t *testing.T) {
	tests := []struct {
		in   string
		want workspace.User
	}{
		{"42", workspace.User{ID: 42}},
		{" anna ", workspace.User{Name: "anna"}},
		{"0", workspace.User{Name: "0"}},
		{"Анна", workspace.User{Name: "Анна"}},
	}
	for _, tt := range tests {
		if got := parseUser(tt.in); got != tt.want {
			t.Errorf("parseUser(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "taskpilot ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAskCommand_EmptyRequestFailsWithoutModel(t *testing.T) {
	t.Setenv("TASKPILOT_STORAGE_DATA_DIR", t.TempDir())
	t.Setenv("TASKPILOT_RATELIMIT_BACKEND", "memory")
	t.Setenv("TASKPILOT_LLM_ENDPOINT", "http://127.0.0.1:1/unused")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"ask", "--user", "tester", "   "})

	if err := root.Execute(); err == nil {
		t.Fatal("expected failure for an empty request")
	}

	var res struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if res.Success || res.Message == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestConversationsList_Empty(t *testing.T) {
	t.Setenv("TASKPILOT_STORAGE_DATA_DIR", t.TempDir())
	t.Setenv("TASKPILOT_RATELIMIT_BACKEND", "memory")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"conversations", "list", "--user", "tester"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"total": 0`) {
		t.Errorf("output = %s", out.String())
	}
}
