package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// AskPrompt handles the taskpilot-ask MCP prompt. It hands a request to the
// assistant verbatim, so the user's wording reaches the agent pipeline.
type AskPrompt struct{}

// NewAskPrompt creates an AskPrompt.
func NewAskPrompt() *AskPrompt {
	return &AskPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *AskPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("taskpilot-ask",
		mcp.WithPromptDescription("Send a request in plain language to the project-management assistant."),
		mcp.WithArgument("request",
			mcp.RequiredArgument(),
			mcp.ArgumentDescription("What you want done, e.g. \"создай задачу «Релиз» и назначь на меня\""),
		),
		mcp.WithArgument("conversation_id",
			mcp.ArgumentDescription("Conversation to continue"),
		),
	)
}

// Handle processes the taskpilot-ask prompt request.
func (p *AskPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	request := strings.TrimSpace(req.Params.Arguments["request"])
	if request == "" {
		return nil, fmt.Errorf("argument 'request' is required")
	}

	call := fmt.Sprintf("Call `agent_ask` with message=%q", request)
	if id := strings.TrimSpace(req.Params.Arguments["conversation_id"]); id != "" {
		call += fmt.Sprintf(" and conversation_id=%q", id)
	}

	return &mcp.GetPromptResult{
		Description: "Ask taskpilot",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(call + ".\n" +
					"Show me the assistant's message as is. If the result has success=false, tell me why and stop. " +
					"Remember the session_id for follow-up requests."),
			},
		},
	}, nil
}
