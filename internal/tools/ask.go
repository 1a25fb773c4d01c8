package tools

import (
	"context"
	"strings"

	"github.com/HendryAvila/taskpilot/internal/agent"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// Asker runs one request through the agent.
type Asker interface {
	ProcessRequest(ctx context.Context, req agent.Request) agent.Result
}

// AskTool handles the agent_ask MCP tool.
type AskTool struct {
	agent Asker
	user  workspace.User
}

// NewAskTool creates an AskTool acting for user.
func NewAskTool(a Asker, user workspace.User) *AskTool {
	return &AskTool{agent: a, user: user}
}

// Definition returns the MCP tool definition for agent_ask.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("agent_ask",
		mcp.WithDescription(
			"Ask the project-management assistant to do something in plain language, "+
				"for example \"show my tasks\" or \"create a task 'Release notes' and assign it to me\". "+
				"The assistant picks one command, fills in its parameters, runs it and replies. "+
				"Pass conversation_id to continue an earlier conversation.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The request, in any language"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation to continue. Omit to start a new one; the result's session_id names it."),
		),
	)
}

// Handle processes the agent_ask tool call. The full result is returned as
// JSON; a failed request is flagged as a tool error but keeps the same body.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.agent.ProcessRequest(ctx, agent.Request{
		Utterance:      req.GetString("message", ""),
		User:           t.user,
		ConversationID: strings.TrimSpace(req.GetString("conversation_id", "")),
	})

	out, err := jsonResult(res)
	if err != nil {
		return nil, err
	}
	out.IsError = !res.Success
	return out, nil
}
