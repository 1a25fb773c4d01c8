// Package templates renders the three prompts sent to the language model:
// command identification, parameter extraction and reply composition.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Kind names a prompt template.
type Kind string

const (
	Identify Kind = "identify"
	Extract  Kind = "extract"
	Reply    Kind = "reply"
)

// Turn is one line of conversation history.
type Turn struct {
	Role    string
	Content string
}

// CommandLine is one catalog entry in the identification prompt.
type CommandLine struct {
	Name        string
	Description string
}

// IdentifyData feeds the identification prompt. Context is pre-encoded JSON.
type IdentifyData struct {
	Utterance string
	Commands  []CommandLine
	Context   string
	History   []Turn
}

// ExtractData feeds the extraction prompt. Schema and Context are JSON.
type ExtractData struct {
	Utterance   string
	Command     string
	Description string
	Schema      string
	Context     string
	History     []Turn
	Today       string
}

// ReplyData feeds the reply prompt. Results is JSON, empty when nothing ran.
type ReplyData struct {
	Utterance string
	Results   string
}

// Renderer holds the parsed prompt templates.
type Renderer struct {
	templates map[Kind]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[Kind]*template.Template)}
	for _, k := range []Kind{Identify, Extract, Reply} {
		name := string(k) + ".tmpl"
		t, err := template.New(name).Option("missingkey=error").ParseFS(promptFS, "prompts/"+name)
		if err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", name, err)
		}
		r.templates[k] = t
	}
	return r, nil
}

// Render executes the template of kind with data.
func (r *Renderer) Render(kind Kind, data any) (string, error) {
	t, ok := r.templates[kind]
	if !ok {
		return "", fmt.Errorf("templates: unknown template %q", kind)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: render %s: %w", kind, err)
	}
	return buf.String(), nil
}
