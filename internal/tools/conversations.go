package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/taskpilot/internal/conversation"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ConversationService is the conversation management surface the tools use.
type ConversationService interface {
	Create(ctx context.Context, userID int64) (*conversation.Conversation, error)
	List(ctx context.Context, userID int64, page conversation.Page) (*conversation.Paged[conversation.Conversation], error)
	Messages(ctx context.Context, userID int64, id string, page conversation.Page) (*conversation.Paged[conversation.Message], error)
	Delete(ctx context.Context, userID int64, id string) error
}

func withPaging() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("per_page",
			mcp.Description(fmt.Sprintf("Items per page (default: %d, max: %d)", conversation.DefaultPerPage, conversation.MaxPerPage)),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default: 1)"),
		),
	}
}

func pageArg(req mcp.CallToolRequest) conversation.Page {
	return conversation.Page{
		PerPage: intArg(req, "per_page", 0),
		Page:    intArg(req, "page", 0),
	}
}

// conversationError turns ownership and lookup failures into tool errors.
// Foreign conversations are reported like missing ones.
func conversationError(id string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, conversation.ErrNotFound) || errors.Is(err, conversation.ErrForbidden) {
		return mcp.NewToolResultError(fmt.Sprintf("Conversation %q not found.", id)), nil
	}
	return nil, err
}

// ─── conversation_create ─────────────────────────────────────────────────────

// ConversationCreateTool handles the conversation_create MCP tool.
type ConversationCreateTool struct {
	svc  ConversationService
	user workspace.User
}

// NewConversationCreateTool creates a ConversationCreateTool.
func NewConversationCreateTool(svc ConversationService, user workspace.User) *ConversationCreateTool {
	return &ConversationCreateTool{svc: svc, user: user}
}

// Definition returns the MCP tool definition for conversation_create.
func (t *ConversationCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_create",
		mcp.WithDescription("Start a new, empty conversation with the assistant and return it."),
	)
}

// Handle processes the conversation_create tool call.
func (t *ConversationCreateTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := t.svc.Create(ctx, t.user.ID)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return jsonResult(c)
}

// ─── conversation_list ───────────────────────────────────────────────────────

// ConversationListTool handles the conversation_list MCP tool.
type ConversationListTool struct {
	svc  ConversationService
	user workspace.User
}

// NewConversationListTool creates a ConversationListTool.
func NewConversationListTool(svc ConversationService, user workspace.User) *ConversationListTool {
	return &ConversationListTool{svc: svc, user: user}
}

// Definition returns the MCP tool definition for conversation_list.
func (t *ConversationListTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List your conversations with the assistant, most recently active first."),
	}, withPaging()...)
	return mcp.NewTool("conversation_list", opts...)
}

// Handle processes the conversation_list tool call.
func (t *ConversationListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := t.svc.List(ctx, t.user.ID, pageArg(req))
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return jsonResult(page)
}

// ─── conversation_messages ───────────────────────────────────────────────────

// ConversationMessagesTool handles the conversation_messages MCP tool.
type ConversationMessagesTool struct {
	svc  ConversationService
	user workspace.User
}

// NewConversationMessagesTool creates a ConversationMessagesTool.
func NewConversationMessagesTool(svc ConversationService, user workspace.User) *ConversationMessagesTool {
	return &ConversationMessagesTool{svc: svc, user: user}
}

// Definition returns the MCP tool definition for conversation_messages.
func (t *ConversationMessagesTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the messages of one of your conversations in the order they were written."),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation to read"),
		),
	}, withPaging()...)
	return mcp.NewTool("conversation_messages", opts...)
}

// Handle processes the conversation_messages tool call.
func (t *ConversationMessagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("conversation_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'conversation_id' is required"), nil
	}

	page, err := t.svc.Messages(ctx, t.user.ID, id, pageArg(req))
	if err != nil {
		return conversationError(id, err)
	}
	return jsonResult(page)
}

// ─── conversation_delete ─────────────────────────────────────────────────────

// ConversationDeleteTool handles the conversation_delete MCP tool.
type ConversationDeleteTool struct {
	svc  ConversationService
	user workspace.User
}

// NewConversationDeleteTool creates a ConversationDeleteTool.
func NewConversationDeleteTool(svc ConversationService, user workspace.User) *ConversationDeleteTool {
	return &ConversationDeleteTool{svc: svc, user: user}
}

// Definition returns the MCP tool definition for conversation_delete.
func (t *ConversationDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_delete",
		mcp.WithDescription("Delete one of your conversations and all of its messages. This cannot be undone."),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation to delete"),
		),
	)
}

// Handle processes the conversation_delete tool call.
func (t *ConversationDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("conversation_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'conversation_id' is required"), nil
	}

	if err := t.svc.Delete(ctx, t.user.ID, id); err != nil {
		return conversationError(id, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Conversation %s deleted.", id)), nil
}
