package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/taskpilot/internal/commands"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// CommandTool exposes one registry command as a direct MCP tool. Arguments go
// through the same validation as model-extracted parameters; no model call is
// made.
type CommandTool struct {
	registry *commands.Registry
	command  commands.Descriptor
	user     workspace.User
}

// NewCommandTools returns one tool per registered command.
func NewCommandTools(registry *commands.Registry, user workspace.User) []*CommandTool {
	names := registry.Names()
	out := make([]*CommandTool, 0, len(names))
	for _, n := range names {
		d, _ := registry.Lookup(n)
		out = append(out, &CommandTool{registry: registry, command: d, user: user})
	}
	return out
}

// Definition returns the tool generated from the command schema.
func (t *CommandTool) Definition() mcp.Tool {
	return t.command.Tool()
}

// Handle validates the arguments and runs the command.
func (t *CommandTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	params, err := t.registry.Validate(t.command.Name, args)
	if err != nil {
		var ve *commands.ValidationError
		if errors.As(err, &ve) {
			return mcp.NewToolResultError(formatFieldErrors(ve)), nil
		}
		return nil, err
	}

	payload, err := t.registry.Execute(ctx, t.command.Name, params, t.user)
	if err != nil {
		return mcp.NewToolResultError(handlerMessage(err)), nil
	}
	return jsonResult(payload)
}

func formatFieldErrors(ve *commands.ValidationError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invalid arguments for %s:\n", ve.Command.ToolName())
	for _, f := range ve.Fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Field, f.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

// handlerMessage reports an execution error under the tool name.
func handlerMessage(err error) string {
	var ee *commands.ExecutionError
	if errors.As(err, &ee) && ee.Err != nil {
		return fmt.Sprintf("%s failed: %v", ee.Command.ToolName(), ee.Err)
	}
	return err.Error()
}
