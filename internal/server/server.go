// Package server wires all taskpilot components and creates the MCP server.
//
// This is the composition root: it opens the stores, builds the model client,
// the command registry and the agent pipeline, and hands them to the tools
// and resources that depend on narrower interfaces. No business logic lives
// here, only wiring.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/HendryAvila/taskpilot/internal/agent"
	"github.com/HendryAvila/taskpilot/internal/commands"
	"github.com/HendryAvila/taskpilot/internal/config"
	"github.com/HendryAvila/taskpilot/internal/contextprov"
	"github.com/HendryAvila/taskpilot/internal/conversation"
	"github.com/HendryAvila/taskpilot/internal/llm"
	"github.com/HendryAvila/taskpilot/internal/logging"
	"github.com/HendryAvila/taskpilot/internal/prompts"
	"github.com/HendryAvila/taskpilot/internal/ratelimit"
	"github.com/HendryAvila/taskpilot/internal/resources"
	"github.com/HendryAvila/taskpilot/internal/tools"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App is the wired application core shared by the MCP server and the CLI.
type App struct {
	User          workspace.User
	Workspace     *workspace.Store
	Conversations *conversation.Service
	Registry      *commands.Registry
	Agent         *agent.Pipeline
}

// closer is a store to close on shutdown.
type closer struct {
	name  string
	close func() error
}

// Wire opens every store and builds the agent for user. The user is created
// in the workspace when it does not exist yet.
//
// The returned cleanup closes the stores in reverse order. It is always
// non-nil and safe to call even when Wire fails.
func Wire(cfg config.Config, logger zerolog.Logger, user workspace.User) (*App, func(), error) {
	var closers []closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].close(); err != nil {
				logger.Warn().Err(err).Str("store", closers[i].name).Msg("close failed")
			}
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, noop, err
	}

	ws, err := workspace.Open(cfg.Storage.DataDir)
	if err != nil {
		return fail(fmt.Errorf("opening workspace: %w", err))
	}
	closers = append(closers, closer{"workspace", ws.Close})

	convs, err := conversation.Open(cfg.Storage.DataDir)
	if err != nil {
		return fail(fmt.Errorf("opening conversations: %w", err))
	}
	closers = append(closers, closer{"conversations", convs.Close})

	var rateStore ratelimit.Store
	switch cfg.RateLimit.Backend {
	case config.BackendMemory:
		logger.Warn().Msg("in-memory rate limiting is only correct for a single process")
		rateStore = ratelimit.NewMemoryStore()
	default:
		sqliteStore, err := ratelimit.OpenSQLiteStore(cfg.Storage.DataDir)
		if err != nil {
			return fail(fmt.Errorf("opening rate limit store: %w", err))
		}
		closers = append(closers, closer{"ratelimit", sqliteStore.Close})
		rateStore = sqliteStore
	}
	limiter, err := ratelimit.New(rateStore, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Window)
	if err != nil {
		return fail(err)
	}

	model, err := llm.NewHTTPClient(llm.Config{
		Endpoint: cfg.LLM.Endpoint,
		Token:    cfg.LLM.Token,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	}, llm.WithLogger(logger))
	if err != nil {
		return fail(err)
	}

	registry, err := commands.NewDefaultRegistry(commands.Services{
		Tasks:    ws,
		Projects: ws,
		Sprints:  ws,
		Comments: ws,
	})
	if err != nil {
		return fail(err)
	}

	providers, err := contextprov.Default(logging.Component(logger, "context"), ws, nil)
	if err != nil {
		return fail(err)
	}

	rules, err := agent.LoadFallbackRules(cfg.Agent.FallbackRules)
	if err != nil {
		return fail(err)
	}

	pipeline, err := agent.New(model, registry,
		agent.WithConversationStore(convs),
		agent.WithRateLimiter(limiter),
		agent.WithContext(providers),
		agent.WithFallbackRules(rules),
		agent.WithLogger(logging.Component(logger, "agent")),
		agent.WithMaxUtteranceLength(cfg.Agent.MaxUtteranceLength),
		agent.WithHistoryWindow(cfg.Agent.HistoryWindow),
	)
	if err != nil {
		return fail(err)
	}

	ctx, cancel := bootContext()
	defer cancel()
	u, err := ws.EnsureUser(ctx, user)
	if err != nil {
		return fail(fmt.Errorf("resolving user: %w", err))
	}

	return &App{
		User:          u,
		Workspace:     ws,
		Conversations: conversation.NewService(convs),
		Registry:      registry,
		Agent:         pipeline,
	}, cleanup, nil
}

// New creates the MCP server with all tools and resources registered for
// user. The returned cleanup must be called on shutdown.
func New(cfg config.Config, logger zerolog.Logger, user workspace.User) (*server.MCPServer, func(), error) {
	app, cleanup, err := Wire(cfg, logger, user)
	if err != nil {
		return nil, noop, err
	}
	return NewMCPServer(app), cleanup, nil
}

// NewMCPServer registers the tools, resources and prompts of app.
func NewMCPServer(app *App) *server.MCPServer {
	s := server.NewMCPServer(
		"taskpilot",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Conversational entry point ---

	askTool := tools.NewAskTool(app.Agent, app.User)
	s.AddTool(askTool.Definition(), askTool.Handle)

	// --- Conversation management ---

	createTool := tools.NewConversationCreateTool(app.Conversations, app.User)
	s.AddTool(createTool.Definition(), createTool.Handle)

	listTool := tools.NewConversationListTool(app.Conversations, app.User)
	s.AddTool(listTool.Definition(), listTool.Handle)

	messagesTool := tools.NewConversationMessagesTool(app.Conversations, app.User)
	s.AddTool(messagesTool.Definition(), messagesTool.Handle)

	deleteTool := tools.NewConversationDeleteTool(app.Conversations, app.User)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	// --- Direct commands ---
	//
	// Same registry and validation as the agent, without a model call.

	for _, t := range tools.NewCommandTools(app.Registry, app.User) {
		s.AddTool(t.Definition(), t.Handle)
	}

	// --- Resources ---

	resourceHandler := resources.NewHandler(app.Registry)
	s.AddResource(resourceHandler.CatalogResource(), resourceHandler.HandleCatalog)

	// --- Prompts ---

	askPrompt := prompts.NewAskPrompt()
	s.AddPrompt(askPrompt.Definition(), askPrompt.Handle)

	standupPrompt := prompts.NewStandupPrompt()
	s.AddPrompt(standupPrompt.Definition(), standupPrompt.Handle)

	return s
}

// bootContext bounds startup queries.
func bootContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

func serverInstructions() string {
	return `taskpilot is a project-management assistant.

Use agent_ask for requests in plain language ("покажи мои задачи", "create a task 'Release notes' and assign it to me").
The assistant chooses one command, fills in its parameters, runs it and replies. Keep the returned session_id and pass it
as conversation_id to continue the same conversation.

Use the direct command tools (list_tasks, create_task, ...) when the parameters are already known.
Use conversation_list, conversation_messages and conversation_delete to manage past conversations.
The resource taskpilot://commands lists every command with its parameter schema.
The prompts taskpilot-ask and taskpilot-standup start the common workflows.`
}
