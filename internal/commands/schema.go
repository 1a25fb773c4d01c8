package commands

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ParamType is the declared type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeDate    ParamType = "date"
)

// Param declares one parameter of a command.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Allowed     []string
	Description string
}

// Schema is the ordered parameter list of a command.
type Schema []Param

// Required returns the names of required parameters.
func (s Schema) Required() []string {
	var out []string
	for _, p := range s {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Handler executes a command with validated parameters on behalf of user.
type Handler func(ctx context.Context, params Params, user workspace.User) (any, error)

// Descriptor is one registry entry.
type Descriptor struct {
	Name        Name
	Description string
	Schema      Schema
	Handler     Handler
}

// Summary is the prompt-sized view of a command: name and one line.
type Summary struct {
	Name        Name   `json:"name"`
	Description string `json:"description"`
}

// Tool renders the descriptor as an MCP tool definition. The same schema
// drives validation, the extraction prompt and the MCP server.
func (d Descriptor) Tool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(d.Description)}

	for _, p := range d.Schema {
		popts := []mcp.PropertyOption{mcp.Description(paramDescription(p))}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		if len(p.Allowed) > 0 {
			popts = append(popts, mcp.Enum(p.Allowed...))
		}

		switch p.Type {
		case TypeInteger, TypeNumber:
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		case TypeBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}

	return mcp.NewTool(d.Name.ToolName(), opts...)
}

// JSONSchema returns the descriptor's input schema as indented JSON.
func (d Descriptor) JSONSchema() string {
	data, err := json.MarshalIndent(d.Tool().InputSchema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func paramDescription(p Param) string {
	switch p.Type {
	case TypeDate:
		return strings.TrimSpace(p.Description + " (YYYY-MM-DD)")
	case TypeInteger:
		return strings.TrimSpace(p.Description + " (integer)")
	default:
		return p.Description
	}
}

// Params holds validated, type-coerced parameters for one command.
// The zero value is empty and belongs to no command.
type Params struct {
	command Name
	values  map[string]any
}

// Command returns the command these parameters were validated for.
func (p Params) Command() Name { return p.command }

// Has reports whether key was supplied.
func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// String returns a string parameter or "".
func (p Params) String(key string) string {
	s, _ := p.values[key].(string)
	return s
}

// Int returns an integer parameter or 0.
func (p Params) Int(key string) int64 {
	n, _ := p.values[key].(int64)
	return n
}

// Float returns a number parameter or 0.
func (p Params) Float(key string) float64 {
	f, _ := p.values[key].(float64)
	return f
}

// Bool returns a boolean parameter or false.
func (p Params) Bool(key string) bool {
	b, _ := p.values[key].(bool)
	return b
}

// Map returns a copy of the supplied parameters.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Keys returns the supplied parameter names, sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
