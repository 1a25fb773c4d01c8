package commands

import (
	"context"
	"fmt"

	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// Registry is the static dispatch table from Name to Descriptor.
type Registry struct {
	descriptors map[Name]Descriptor
	order       []Name
}

// NewRegistry builds a registry. Duplicate names, the None sentinel and
// missing handlers are wiring defects and are reported as errors.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{descriptors: make(map[Name]Descriptor, len(descriptors))}

	for _, d := range descriptors {
		switch {
		case d.Name == "" || d.Name == None:
			return nil, fmt.Errorf("commands: invalid command name %q", d.Name)
		case Normalize(string(d.Name)) != d.Name:
			return nil, fmt.Errorf("commands: name %q is not canonical", d.Name)
		case d.Handler == nil:
			return nil, fmt.Errorf("commands: %s has no handler", d.Name)
		}
		if _, dup := r.descriptors[d.Name]; dup {
			return nil, fmt.Errorf("commands: duplicate command %s", d.Name)
		}
		seen := make(map[string]bool, len(d.Schema))
		for _, p := range d.Schema {
			if seen[p.Name] {
				return nil, fmt.Errorf("commands: %s declares %q twice", d.Name, p.Name)
			}
			seen[p.Name] = true
		}

		r.descriptors[d.Name] = d
		r.order = append(r.order, d.Name)
	}

	return r, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name Name) bool {
	_, ok := r.descriptors[name]
	return ok
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name Name) (Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Describe returns the prompt-sized catalog: names and one-line descriptions
// only, never schemas.
func (r *Registry) Describe() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, Summary{Name: n, Description: r.descriptors[n].Description})
	}
	return out
}

// SchemaFor returns the parameter schema of name.
func (r *Registry) SchemaFor(name Name) (Schema, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return d.Schema, nil
}

// Tools returns every command as an MCP tool definition.
func (r *Registry) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.descriptors[n].Tool())
	}
	return out
}

// Execute runs the handler bound to name. params must come from Validate for
// the same command. Handler errors and panics are returned as *ExecutionError.
func (r *Registry) Execute(ctx context.Context, name Name, params Params, user workspace.User) (payload any, err error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if params.command != name {
		return nil, &ExecutionError{
			Command: name,
			Err:     fmt.Errorf("parameters were validated for %q", params.command),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = &ExecutionError{
				Command: name,
				Err:     fmt.Errorf("handler panic: %v", rec),
			}
		}
	}()

	out, herr := d.Handler(ctx, params, user)
	if herr != nil {
		return nil, &ExecutionError{Command: name, Err: herr}
	}
	return out, nil
}
