package templates

import (
	"strings"
	"testing"
)

// --- NewRenderer ---

func TestNewRenderer_Succeeds(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	if r == nil {
		t.Fatal("NewRenderer() returned nil")
	}
}

// --- Render: Identify ---

func TestRender_Identify(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := IdentifyData{
		Utterance: "Покажи мои задачи",
		Commands: []CommandLine{
			{Name: "LIST_TASKS", Description: "List tasks"},
			{Name: "CREATE_TASK", Description: "Create a task"},
		},
		Context: `{"current_user":{"id":1}}`,
		History: []Turn{{Role: "user", Content: "привет"}, {Role: "agent", Content: "Здравствуйте"}},
	}

	result, err := r.Render(Identify, data)
	if err != nil {
		t.Fatalf("Render(Identify) failed: %v", err)
	}

	checks := []string{
		"- LIST_TASKS: List tasks",
		"- CREATE_TASK: Create a task",
		"- NONE:",
		`{"current_user":{"id":1}}`,
		"user: привет",
		"agent: Здравствуйте",
		"Покажи мои задачи",
		"exactly one command name",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("Identify output missing: %q", check)
		}
	}
}

func TestRender_IdentifyWithoutHistory(t *testing.T) {
	r, _ := NewRenderer()
	result, err := r.Render(Identify, IdentifyData{Utterance: "hi", Context: "{}"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(result, "Recent conversation") {
		t.Error("history section rendered without history")
	}
}

// --- Render: Extract ---

func TestRender_Extract(t *testing.T) {
	r, _ := NewRenderer()

	result, err := r.Render(Extract, ExtractData{
		Utterance:   `Создай задачу "X" и назначь на меня`,
		Command:     "CREATE_TASK",
		Description: "Create a task",
		Schema:      `{"type":"object","properties":{"title":{"type":"string"}}}`,
		Context:     "{}",
		Today:       "2026-05-04",
	})
	if err != nil {
		t.Fatalf("Render(Extract) failed: %v", err)
	}

	for _, check := range []string{
		"command CREATE_TASK",
		`"title":{"type":"string"}`,
		"Today is 2026-05-04",
		`Создай задачу "X"`,
		"one JSON object",
	} {
		if !strings.Contains(result, check) {
			t.Errorf("Extract output missing: %q", check)
		}
	}
}

// --- Render: Reply ---

func TestRender_Reply(t *testing.T) {
	r, _ := NewRenderer()

	withResults, err := r.Render(Reply, ReplyData{Utterance: "list", Results: `[{"command":"LIST_TASKS"}]`})
	if err != nil {
		t.Fatalf("Render(Reply) failed: %v", err)
	}
	if !strings.Contains(withResults, `[{"command":"LIST_TASKS"}]`) {
		t.Error("Reply output missing results")
	}

	nothing, _ := r.Render(Reply, ReplyData{Utterance: "hello"})
	if !strings.Contains(nothing, "No command was executed") {
		t.Error("Reply output missing no-command notice")
	}
}

// --- Errors ---

func TestRender_UnknownKind(t *testing.T) {
	r, _ := NewRenderer()
	if _, err := r.Render(Kind("summary"), nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestRender_WrongDataType(t *testing.T) {
	r, _ := NewRenderer()
	if _, err := r.Render(Identify, struct{ Foo string }{"x"}); err == nil {
		t.Fatal("expected error for mismatched data")
	}
}
