// Package tools implements the MCP tool handlers of taskpilot.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the mcp.Tool schema and Handle serving calls. Every call acts on behalf of
// the user the server was started for.
//
// Domain failures (bad arguments, unknown conversation, rejected request) are
// returned as tool errors with a nil Go error; a non-nil error is reserved for
// failures the caller cannot fix.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
)

// intArg extracts an integer argument, returning defaultVal when the key is
// missing or not a number. JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return defaultVal
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return defaultVal
	}
	return n
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
