// taskpilot: conversational project-management assistant.
//
// Usage:
//
//	taskpilot serve                     # Start MCP server (stdio transport)
//	taskpilot ask "покажи мои задачи"   # Run one request and print the result
//	taskpilot conversations list        # List your conversations
//	taskpilot conversations delete ID   # Delete a conversation
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/HendryAvila/taskpilot/internal/agent"
	"github.com/HendryAvila/taskpilot/internal/config"
	"github.com/HendryAvila/taskpilot/internal/conversation"
	"github.com/HendryAvila/taskpilot/internal/logging"
	tpserver "github.com/HendryAvila/taskpilot/internal/server"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	user       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:          "taskpilot",
		Short:        "Conversational project-management assistant",
		Version:      tpserver.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: ./taskpilot.yaml or ~/.taskpilot/taskpilot.yaml)")
	root.PersistentFlags().StringVar(&flags.user, "user", os.Getenv("USER"), "user name or numeric id to act as")

	root.AddCommand(
		newServeCmd(&flags),
		newAskCmd(&flags),
		newConversationsCmd(&flags),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and builds the root logger. Logs go to stderr so
// they never interfere with the MCP stdio transport on stdout.
func setup(flags *globalFlags) (config.Config, zerolog.Logger, workspace.User, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), workspace.User{}, err
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return cfg, logger, parseUser(flags.user), nil
}

// parseUser treats a numeric value as a user id and anything else as a name.
func parseUser(s string) workspace.User {
	s = strings.TrimSpace(s)
	if id, err := cast.ToInt64E(s); err == nil && id > 0 {
		return workspace.User{ID: id}
	}
	return workspace.User{Name: s}
}

func wire(flags *globalFlags) (*tpserver.App, func(), error) {
	cfg, logger, user, err := setup(flags)
	if err != nil {
		return nil, func() {}, err
	}
	return tpserver.Wire(cfg, logger, user)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ─── serve ───────────────────────────────────────────────────────────────────

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, user, err := setup(flags)
			if err != nil {
				return err
			}

			s, cleanup, err := tpserver.New(cfg, logger, user)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			logger.Info().Str("version", tpserver.Version).Str("data_dir", cfg.Storage.DataDir).Msg("serving MCP on stdio")
			return server.ServeStdio(s)
		},
	}
}

// ─── ask ─────────────────────────────────────────────────────────────────────

func newAskCmd(flags *globalFlags) *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Run one request through the assistant and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := wire(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			res := app.Agent.ProcessRequest(ctx, agent.Request{
				Utterance:      strings.Join(args, " "),
				User:           app.User,
				ConversationID: conversationID,
			})
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("request failed: %s", res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation to continue")
	return cmd
}

// ─── conversations ───────────────────────────────────────────────────────────

func newConversationsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage your conversations",
	}

	var page conversation.Page
	list := &cobra.Command{
		Use:   "list",
		Short: "List your conversations, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := wire(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			out, err := app.Conversations.List(ctx, app.User.ID, page)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	list.Flags().IntVar(&page.Page, "page", 1, "page number")
	list.Flags().IntVar(&page.PerPage, "per-page", conversation.DefaultPerPage, "conversations per page")

	var msgPage conversation.Page
	messages := &cobra.Command{
		Use:   "messages <id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := wire(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			out, err := app.Conversations.Messages(ctx, app.User.ID, args[0], msgPage)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	messages.Flags().IntVar(&msgPage.Page, "page", 1, "page number")
	messages.Flags().IntVar(&msgPage.PerPage, "per-page", conversation.DefaultPerPage, "messages per page")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := wire(flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			if err := app.Conversations.Delete(ctx, app.User.ID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation %s deleted.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, messages, del)
	return cmd
}

// ─── version ─────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskpilot %s\n", tpserver.Version)
		},
	}
}
