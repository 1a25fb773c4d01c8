// Package prompts implements the MCP prompts of taskpilot.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the host model to call a sequence of tools. Unlike tools, they
// are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// StandupPrompt handles the taskpilot-standup MCP prompt.
type StandupPrompt struct{}

// NewStandupPrompt creates a StandupPrompt.
func NewStandupPrompt() *StandupPrompt {
	return &StandupPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StandupPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("taskpilot-standup",
		mcp.WithPromptDescription(
			"Prepare a stand-up update from your tasks: what is done, "+
				"what is in progress and what is blocked in review.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Limit the update to one project. Default: all your projects"),
		),
	)
}

// Handle processes the taskpilot-standup prompt request.
func (p *StandupPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	scope := "all my projects"
	filter := "only_mine=true"
	if id := strings.TrimSpace(req.Params.Arguments["project_id"]); id != "" {
		scope = "project " + id
		filter += ", project_id=" + id
	}

	return &mcp.GetPromptResult{
		Description: "Stand-up update for " + scope,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Prepare my stand-up update for %s.\n\n"+
						"1. Call `list_tasks` with %s.\n"+
						"2. Group the tasks by status: done, in_progress, review, todo.\n"+
						"3. Write three short sections: Done, Doing, Blocked (tasks in review).\n"+
						"4. Do not change any task.",
					scope, filter,
				)),
			},
		},
	}, nil
}
