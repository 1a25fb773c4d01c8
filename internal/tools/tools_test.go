package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/taskpilot/internal/agent"
	"github.com/HendryAvila/taskpilot/internal/commands"
	"github.com/HendryAvila/taskpilot/internal/conversation"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newConversationService(t *testing.T) *conversation.Service {
	t.Helper()
	store, err := conversation.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open conversation store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return conversation.NewService(store)
}

func newWorkspace(t *testing.T) (*workspace.Store, workspace.User) {
	t.Helper()
	store, err := workspace.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	user, err := store.EnsureUser(context.Background(), workspace.User{Name: "Анна"})
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	return store, user
}

func commandTool(t *testing.T, tools []*CommandTool, name string) *CommandTool {
	t.Helper()
	for _, tool := range tools {
		if tool.Definition().Name == name {
			return tool
		}
	}
	t.Fatalf("no tool named %s", name)
	return nil
}

// ─── AskTool ─────────────────────────────────────────────────────────────────

type fakeAsker struct {
	got agent.Request
	res agent.Result
}

func (f *fakeAsker) ProcessRequest(_ context.Context, req agent.Request) agent.Result {
	f.got = req
	return f.res
}

func TestAskTool_Definition(t *testing.T) {
	def := NewAskTool(&fakeAsker{}, workspace.User{ID: 1}).Definition()
	if def.Name != "agent_ask" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "message" {
		t.Errorf("required = %v, want [message]", def.InputSchema.Required)
	}
}

func TestAskTool_PassesRequestAndReturnsJSON(t *testing.T) {
	asker := &fakeAsker{res: agent.Result{
		Success:          true,
		Message:          "Готово.",
		SessionID:        "s-1",
		CommandsExecuted: 1,
		CommandResults:   []agent.CommandResult{{Command: commands.ListTasks, Success: true}},
	}}
	user := workspace.User{ID: 3, Name: "Олег"}
	tool := NewAskTool(asker, user)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":         "покажи задачи",
		"conversation_id": "  s-1 ",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}

	if asker.got.Utterance != "покажи задачи" || asker.got.ConversationID != "s-1" || asker.got.User != user {
		t.Errorf("request = %+v", asker.got)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(resultText(result)), &decoded); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if decoded["session_id"] != "s-1" || decoded["commands_executed"] != float64(1) {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestAskTool_FailureIsToolError(t *testing.T) {
	asker := &fakeAsker{res: agent.Result{Success: false, Message: "Rate limit exceeded: too many requests."}}
	result, err := NewAskTool(asker, workspace.User{ID: 1}).Handle(context.Background(), makeReq(map[string]interface{}{
		"message": "x",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error")
	}
	if !strings.Contains(resultText(result), "Rate limit") {
		t.Errorf("text = %s", resultText(result))
	}
}

// ─── Conversation tools ──────────────────────────────────────────────────────

func TestConversationTools_Lifecycle(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()
	anna := workspace.User{ID: 7}

	created, err := NewConversationCreateTool(svc, anna).Handle(ctx, makeReq(nil))
	if err != nil || created.IsError {
		t.Fatalf("create: %v %s", err, resultText(created))
	}
	var conv conversation.Conversation
	if err := json.Unmarshal([]byte(resultText(created)), &conv); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if conv.ID == "" || conv.UserID != 7 {
		t.Fatalf("conversation = %+v", conv)
	}

	for _, text := range []string{"один", "два", "три"} {
		if _, err := svc.Store().AppendMessage(ctx, conv.ID, conversation.RoleUser, text, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	listed, err := NewConversationListTool(svc, anna).Handle(ctx, makeReq(nil))
	if err != nil || listed.IsError {
		t.Fatalf("list: %v %s", err, resultText(listed))
	}
	if !strings.Contains(resultText(listed), conv.ID) {
		t.Errorf("list does not mention %s: %s", conv.ID, resultText(listed))
	}

	msgs, err := NewConversationMessagesTool(svc, anna).Handle(ctx, makeReq(map[string]interface{}{
		"conversation_id": conv.ID,
		"per_page":        float64(2),
		"page":            float64(2),
	}))
	if err != nil || msgs.IsError {
		t.Fatalf("messages: %v %s", err, resultText(msgs))
	}
	var page conversation.Paged[conversation.Message]
	if err := json.Unmarshal([]byte(resultText(msgs)), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || len(page.Items) != 1 || page.Items[0].Content != "три" {
		t.Errorf("page = %+v", page)
	}

	deleted, err := NewConversationDeleteTool(svc, anna).Handle(ctx, makeReq(map[string]interface{}{
		"conversation_id": conv.ID,
	}))
	if err != nil || deleted.IsError {
		t.Fatalf("delete: %v %s", err, resultText(deleted))
	}

	again, err := NewConversationMessagesTool(svc, anna).Handle(ctx, makeReq(map[string]interface{}{
		"conversation_id": conv.ID,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.IsError {
		t.Error("expected not-found after delete")
	}
}

func TestConversationTools_HideForeignConversations(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	other, err := svc.Create(ctx, 99)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	anna := workspace.User{ID: 7}

	for name, handle := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"messages": NewConversationMessagesTool(svc, anna).Handle,
		"delete":   NewConversationDeleteTool(svc, anna).Handle,
	} {
		result, err := handle(ctx, makeReq(map[string]interface{}{"conversation_id": other.ID}))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !result.IsError || !strings.Contains(resultText(result), "not found") {
			t.Errorf("%s: result = %s", name, resultText(result))
		}
	}

	if _, err := svc.Authorize(ctx, 99, other.ID); err != nil {
		t.Errorf("foreign delete must not remove the conversation: %v", err)
	}
}

func TestConversationTools_RequireID(t *testing.T) {
	svc := newConversationService(t)
	result, err := NewConversationDeleteTool(svc, workspace.User{ID: 1}).Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing conversation_id")
	}
}

// ─── CommandTool ─────────────────────────────────────────────────────────────

func TestCommandTools_OnePerCommand(t *testing.T) {
	store, user := newWorkspace(t)
	registry, err := commands.NewDefaultRegistry(commands.Services{Tasks: store, Projects: store, Sprints: store, Comments: store})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	tools := NewCommandTools(registry, user)
	if len(tools) != len(commands.AllNames) {
		t.Fatalf("got %d tools, want %d", len(tools), len(commands.AllNames))
	}
	for i, n := range commands.AllNames {
		if got := tools[i].Definition().Name; got != n.ToolName() {
			t.Errorf("tool %d = %s, want %s", i, got, n.ToolName())
		}
	}
}

func TestCommandTools_CreateAndList(t *testing.T) {
	store, user := newWorkspace(t)
	registry, err := commands.NewDefaultRegistry(commands.Services{Tasks: store, Projects: store, Sprints: store, Comments: store})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	tools := NewCommandTools(registry, user)
	ctx := context.Background()

	project, err := commandTool(t, tools, "create_project").Handle(ctx, makeReq(map[string]interface{}{"name": "Альфа"}))
	if err != nil || project.IsError {
		t.Fatalf("create_project: %v %s", err, resultText(project))
	}

	task, err := commandTool(t, tools, "create_task").Handle(ctx, makeReq(map[string]interface{}{
		"title":        "Написать релиз",
		"assign_to_me": true,
		"priority":     "HIGH",
	}))
	if err != nil || task.IsError {
		t.Fatalf("create_task: %v %s", err, resultText(task))
	}
	var created workspace.Task
	if err := json.Unmarshal([]byte(resultText(task)), &created); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if created.Priority != workspace.PriorityHigh || created.AssigneeID == nil || *created.AssigneeID != user.ID {
		t.Errorf("task = %+v", created)
	}

	listed, err := commandTool(t, tools, "list_tasks").Handle(ctx, makeReq(map[string]interface{}{"only_mine": true}))
	if err != nil || listed.IsError {
		t.Fatalf("list_tasks: %v %s", err, resultText(listed))
	}
	if !strings.Contains(resultText(listed), "Написать релиз") {
		t.Errorf("list = %s", resultText(listed))
	}
}

func TestCommandTools_MembersAndComments(t *testing.T) {
	store, user := newWorkspace(t)
	registry, err := commands.NewDefaultRegistry(commands.Services{Tasks: store, Projects: store, Sprints: store, Comments: store})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	tools := NewCommandTools(registry, user)
	ctx := context.Background()

	oleg, err := store.EnsureUser(ctx, workspace.User{Name: "Олег"})
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	created, err := commandTool(t, tools, "create_project").Handle(ctx, makeReq(map[string]interface{}{"name": "Бета"}))
	if err != nil || created.IsError {
		t.Fatalf("create_project: %v %s", err, resultText(created))
	}
	var project workspace.Project
	if err := json.Unmarshal([]byte(resultText(created)), &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}

	added, err := commandTool(t, tools, "add_project_member").Handle(ctx, makeReq(map[string]interface{}{
		"project_id": float64(project.ID),
		"user_id":    float64(oleg.ID),
	}))
	if err != nil || added.IsError {
		t.Fatalf("add_project_member: %v %s", err, resultText(added))
	}
	visible, err := store.ListProjects(ctx, oleg)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != project.ID {
		t.Errorf("projects visible to new member = %+v", visible)
	}

	task, err := store.CreateTask(ctx, user, workspace.CreateTaskInput{ProjectID: project.ID, Title: "Обзор"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	for _, text := range []string{"первый", "второй"} {
		res, err := commandTool(t, tools, "add_comment").Handle(ctx, makeReq(map[string]interface{}{
			"task_id": float64(task.ID),
			"text":    text,
		}))
		if err != nil || res.IsError {
			t.Fatalf("add_comment: %v %s", err, resultText(res))
		}
	}

	listed, err := commandTool(t, tools, "list_comments").Handle(ctx, makeReq(map[string]interface{}{"task_id": float64(task.ID)}))
	if err != nil || listed.IsError {
		t.Fatalf("list_comments: %v %s", err, resultText(listed))
	}
	var comments []workspace.Comment
	if err := json.Unmarshal([]byte(resultText(listed)), &comments); err != nil {
		t.Fatalf("decode comments: %v", err)
	}
	if len(comments) != 2 || comments[0].Body != "первый" || comments[1].Body != "второй" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestCommandTools_ValidationAndDomainErrors(t *testing.T) {
	store, user := newWorkspace(t)
	registry, err := commands.NewDefaultRegistry(commands.Services{Tasks: store, Projects: store, Sprints: store, Comments: store})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	tools := NewCommandTools(registry, user)
	ctx := context.Background()

	invalid, err := commandTool(t, tools, "update_task_status").Handle(ctx, makeReq(map[string]interface{}{
		"task_id": float64(1),
		"status":  "finished",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invalid.IsError || !strings.Contains(resultText(invalid), "- status:") {
		t.Errorf("validation result = %s", resultText(invalid))
	}

	missing, err := commandTool(t, tools, "add_comment").Handle(ctx, makeReq(map[string]interface{}{
		"task_id": float64(404),
		"text":    "привет",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !missing.IsError || !strings.HasPrefix(resultText(missing), "add_comment failed:") {
		t.Errorf("domain result = %s", resultText(missing))
	}
}
