// Package agent turns one free-text request into at most one validated,
// executed command and a reply.
//
// A run makes three sequential model calls: identify the command from a
// catalog of names, extract its parameters against that command's schema
// only, and compose a reply from the results. Identification and extraction
// failures at the transport level end the run; everything else degrades:
// unusable identification output falls back to keyword rules, unparsable
// parameters validate as an empty object, and a failed reply becomes a
// deterministic summary.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HendryAvila/taskpilot/internal/commands"
	"github.com/HendryAvila/taskpilot/internal/contextprov"
	"github.com/HendryAvila/taskpilot/internal/conversation"
	"github.com/HendryAvila/taskpilot/internal/llm"
	"github.com/HendryAvila/taskpilot/internal/ratelimit"
	"github.com/HendryAvila/taskpilot/internal/templates"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxUtteranceLength = 2000
	DefaultHistoryWindow      = 10
)

// ConversationStore is the slice of the conversation log a run needs.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID int64) (*conversation.Conversation, error)
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, id string, role conversation.Role, content string, metadata any) (*conversation.Message, error)
	ContinuationToken(ctx context.Context, id string) (string, error)
	SetContinuationToken(ctx context.Context, id, token string) error
	RecentMessages(ctx context.Context, id string, n int) ([]conversation.Message, error)
}

// RateLimiter admits or rejects a run atomically.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (ratelimit.Decision, error)
}

// PromptRenderer renders the prompt of one model call.
type PromptRenderer interface {
	Render(kind templates.Kind, data any) (string, error)
}

// ContextGatherer merges the provider fragments for a user.
type ContextGatherer interface {
	Gather(ctx context.Context, user workspace.User) contextprov.Context
}

// Request is one utterance from one user.
type Request struct {
	Utterance      string
	User           workspace.User
	ConversationID string
}

// CommandResult is the outcome of one command of a run.
type CommandResult struct {
	Command   commands.Name  `json:"command"`
	Success   bool           `json:"success"`
	Params    map[string]any `json:"params,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
	Fallback  bool           `json:"fallback,omitempty"`
}

// Result is what ProcessRequest returns. Message is always displayable.
type Result struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	SessionID        string          `json:"session_id"`
	CommandsExecuted int             `json:"commands_executed"`
	CommandResults   []CommandResult `json:"command_results"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`

	// States is the sequence of states the run visited.
	States []State `json:"-"`
	// Err is the typed top-level failure, nil when Success is true.
	Err error `json:"-"`
}

// Pipeline processes requests. It is safe for concurrent use.
type Pipeline struct {
	llm       llm.Client
	registry  *commands.Registry
	store     ConversationStore
	limiter   RateLimiter
	gatherer  ContextGatherer
	renderer  PromptRenderer
	fallback  FallbackRules
	logger    zerolog.Logger
	now       func() time.Time
	maxLength int
	history   int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConversationStore sets the conversation log. Required.
func WithConversationStore(s ConversationStore) Option {
	return func(p *Pipeline) error {
		if s == nil {
			return errors.New("conversation store cannot be nil")
		}
		p.store = s
		return nil
	}
}

// WithRateLimiter sets the rate limiter. Required.
func WithRateLimiter(l RateLimiter) Option {
	return func(p *Pipeline) error {
		if l == nil {
			return errors.New("rate limiter cannot be nil")
		}
		p.limiter = l
		return nil
	}
}

// WithContext sets the context providers.
func WithContext(g ContextGatherer) Option {
	return func(p *Pipeline) error {
		if g == nil {
			return errors.New("context gatherer cannot be nil")
		}
		p.gatherer = g
		return nil
	}
}

// WithFallbackRules replaces the built-in keyword rules.
func WithFallbackRules(fr FallbackRules) Option {
	return func(p *Pipeline) error {
		p.fallback = fr
		return nil
	}
}

// WithRenderer replaces the built-in prompt templates.
func WithRenderer(r PromptRenderer) Option {
	return func(p *Pipeline) error {
		if r == nil {
			return errors.New("prompt renderer cannot be nil")
		}
		p.renderer = r
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) error {
		p.logger = l
		return nil
	}
}

// WithClock replaces the time source used for timings and dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// WithMaxUtteranceLength bounds requests, in characters.
func WithMaxUtteranceLength(n int) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return fmt.Errorf("max utterance length must be positive, got %d", n)
		}
		p.maxLength = n
		return nil
	}
}

// WithHistoryWindow sets how many past messages go into prompts.
func WithHistoryWindow(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("history window cannot be negative, got %d", n)
		}
		p.history = n
		return nil
	}
}

// New builds a Pipeline.
func New(client llm.Client, registry *commands.Registry, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("agent: llm client is required")
	}
	if registry == nil {
		return nil, errors.New("agent: command registry is required")
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	emptyContext, _ := contextprov.NewSet(zerolog.Nop())

	p := &Pipeline{
		llm:       client,
		registry:  registry,
		gatherer:  emptyContext,
		renderer:  renderer,
		fallback:  DefaultFallbackRules(),
		logger:    zerolog.Nop(),
		now:       time.Now,
		maxLength: DefaultMaxUtteranceLength,
		history:   DefaultHistoryWindow,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("agent: %w", err)
		}
	}

	if p.store == nil {
		return nil, errors.New("agent: conversation store is required")
	}
	if p.limiter == nil {
		return nil, errors.New("agent: rate limiter is required")
	}
	if err := p.fallback.check(registry.Has); err != nil {
		return nil, err
	}
	return p, nil
}

// run carries the per-request state through the stages.
type run struct {
	req     Request
	trace   *trace
	conv    *conversation.Conversation
	// unreadable is set when the requested conversation could not be loaded.
	// The turn still runs but is not written anywhere.
	unreadable bool
	token   string
	history []templates.Turn
	context string
	command commands.Name
	viaRule bool
	raw     map[string]any
	results []CommandResult
	reply   string
	log     zerolog.Logger
}

// ProcessRequest runs one request to completion. It never panics on model
// or handler misbehaviour and always returns a displayable Message.
func (p *Pipeline) ProcessRequest(ctx context.Context, req Request) Result {
	start := p.now()
	r := &run{
		req:   req,
		trace: newTrace(),
		log: p.logger.With().
			Int64("user_id", req.User.ID).
			Str("conversation_id", req.ConversationID).
			Logger(),
	}

	res := p.process(ctx, r)

	res.States = r.trace.snapshot()
	res.ProcessingTimeMs = p.now().Sub(start).Milliseconds()
	if res.CommandResults == nil {
		res.CommandResults = []CommandResult{}
	}

	ev := r.log.Info()
	if !res.Success {
		ev = r.log.Warn().Err(res.Err)
	}
	ev.Bool("success", res.Success).
		Str("command", string(r.command)).
		Int("commands_executed", res.CommandsExecuted).
		Int64("duration_ms", res.ProcessingTimeMs).
		Msg("request processed")
	return res
}

func (p *Pipeline) process(ctx context.Context, r *run) Result {
	if res, failed := p.checkInput(ctx, r); failed {
		return res
	}

	if res, failed := p.checkRate(ctx, r); failed {
		return res
	}
	r.trace.advance(StateRateChecked)

	p.gatherContext(ctx, r)
	r.trace.advance(StateContextGathered)

	if err := p.identify(ctx, r); err != nil {
		return p.stageFailure(r, "identify", err)
	}
	r.trace.advance(StateCommandIdentified)

	if r.command != "" {
		if err := p.extract(ctx, r); err != nil {
			return p.stageFailure(r, "extract", err)
		}
	}
	r.trace.advance(StateParametersExtracted)

	if r.command != "" {
		r.results = append(r.results, p.execute(ctx, r))
	}
	r.trace.advance(StateExecuted)

	p.composeReply(ctx, r)
	r.trace.advance(StateReplyComposed)

	if r.unreadable {
		r.log.Warn().Msg("conversation could not be loaded, turn not persisted")
	} else if err := p.persist(ctx, r); err != nil {
		r.log.Error().Err(err).Msg("persist conversation turn")
	} else {
		r.trace.advance(StatePersisted)
	}
	r.trace.advance(StateDone)

	executed := 0
	for _, cr := range r.results {
		if cr.Success {
			executed++
		}
	}
	sessionID := r.req.ConversationID
	if r.conv != nil {
		sessionID = r.conv.ID
	}
	return Result{
		Success:          true,
		Message:          r.reply,
		SessionID:        sessionID,
		CommandsExecuted: executed,
		CommandResults:   r.results,
	}
}

// ─── Stages ──────────────────────────────────────────────────────────────────

func (p *Pipeline) checkInput(ctx context.Context, r *run) (Result, bool) {
	text := strings.TrimSpace(r.req.Utterance)
	if text == "" {
		return p.fail(r, &InputError{Reason: "empty request"}, msgEmpty), true
	}
	if n := utf8.RuneCountInString(text); n > p.maxLength {
		return p.fail(r, &InputError{Reason: fmt.Sprintf("request has %d characters, limit %d", n, p.maxLength)},
			fmt.Sprintf(msgTooLong, n, p.maxLength)), true
	}
	r.req.Utterance = text

	if r.req.ConversationID == "" {
		return Result{}, false
	}
	conv, err := p.store.GetConversation(ctx, r.req.ConversationID)
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return p.fail(r, &InputError{Reason: "unknown conversation"}, msgBadSession), true
	case err != nil:
		// A log we cannot read is not the user's fault; run without history.
		r.log.Error().Err(err).Msg("load conversation")
		r.unreadable = true
		return Result{}, false
	case conv.UserID != r.req.User.ID:
		return p.fail(r, &InputError{Reason: "conversation belongs to another user"}, msgBadSession), true
	}
	r.conv = conv
	return Result{}, false
}

func (p *Pipeline) checkRate(ctx context.Context, r *run) (Result, bool) {
	d, err := p.limiter.Allow(ctx, r.req.User.ID)
	if err != nil {
		return p.fail(r, &RateLimitError{Err: err}, msgRateLimitBusy), true
	}
	if !d.Allowed {
		return p.fail(r, &RateLimitError{RetryAfter: d.RetryAfter},
			fmt.Sprintf(msgRateLimited, formatRetry(d.RetryAfter))), true
	}
	return Result{}, false
}

func (p *Pipeline) gatherContext(ctx context.Context, r *run) {
	r.context = compactJSON(p.gatherer.Gather(ctx, r.req.User))

	if r.conv == nil {
		return
	}
	tok, err := p.store.ContinuationToken(ctx, r.conv.ID)
	if err != nil {
		r.log.Warn().Err(err).Msg("load continuation token")
	}
	r.token = tok

	if p.history == 0 {
		return
	}
	msgs, err := p.store.RecentMessages(ctx, r.conv.ID, p.history)
	if err != nil {
		r.log.Warn().Err(err).Msg("load history")
		return
	}
	for _, m := range msgs {
		r.history = append(r.history, templates.Turn{Role: string(m.Role), Content: m.Content})
	}
}

func (p *Pipeline) identify(ctx context.Context, r *run) error {
	catalog := p.registry.Describe()
	lines := make([]templates.CommandLine, 0, len(catalog))
	for _, c := range catalog {
		lines = append(lines, templates.CommandLine{Name: string(c.Name), Description: c.Description})
	}
	prompt, err := p.render(templates.Identify, templates.IdentifyData{
		Utterance: r.req.Utterance,
		Commands:  lines,
		Context:   r.context,
		History:   r.history,
	})
	if err != nil {
		return err
	}

	out, err := p.complete(ctx, r, prompt)
	if err != nil {
		return err
	}

	name, ok := ParseCommand(out, p.registry.Has)
	switch {
	case ok && name == commands.None:
		r.log.Debug().Msg("model chose no command")
	case ok:
		r.command = name
	default:
		r.log.Info().Str("output", truncate(out, 200)).Msg("unusable identification, trying keyword rules")
		if name, matched := p.fallback.Match(r.req.Utterance); matched {
			r.command, r.viaRule = name, true
		}
	}
	return nil
}

func (p *Pipeline) extract(ctx context.Context, r *run) error {
	d, _ := p.registry.Lookup(r.command)
	prompt, err := p.render(templates.Extract, templates.ExtractData{
		Utterance:   r.req.Utterance,
		Command:     string(d.Name),
		Description: d.Description,
		Schema:      d.JSONSchema(),
		Context:     r.context,
		History:     r.history,
		Today:       p.now().Format(workspace.DateLayout),
	})
	if err != nil {
		return err
	}

	out, err := p.complete(ctx, r, prompt)
	if err != nil {
		return err
	}

	raw, err := ParseParameters(out)
	if err != nil {
		r.log.Info().Err(err).Str("command", string(r.command)).Msg("unparsable parameters, using empty object")
		raw = map[string]any{}
	}
	r.raw = raw
	return nil
}

func (p *Pipeline) execute(ctx context.Context, r *run) CommandResult {
	cr := CommandResult{Command: r.command, Fallback: r.viaRule}

	params, err := p.registry.Validate(r.command, r.raw)
	if err != nil {
		cr.ErrorKind = ErrorKindValidation
		cr.Error = validationText(err)
		return cr
	}
	cr.Params = params.Map()

	payload, err := p.registry.Execute(ctx, r.command, params, r.req.User)
	if err != nil {
		r.log.Warn().Err(err).Str("command", string(r.command)).Msg("command failed")
		cr.ErrorKind = ErrorKindExecution
		cr.Error = executionText(err)
		return cr
	}
	cr.Success = true
	cr.Payload = payload
	return cr
}

func (p *Pipeline) composeReply(ctx context.Context, r *run) {
	results := ""
	if len(r.results) > 0 {
		results = compactJSON(r.results)
	}
	prompt, err := p.render(templates.Reply, templates.ReplyData{
		Utterance: r.req.Utterance,
		Results:   results,
	})
	if err == nil {
		var out string
		out, err = p.complete(ctx, r, prompt)
		if err == nil && strings.TrimSpace(out) != "" {
			r.reply = strings.TrimSpace(out)
			return
		}
		if err == nil {
			err = errors.New("empty reply")
		}
	}
	r.log.Warn().Err(err).Msg("reply composition failed, using summary")
	r.reply = Summarize(r.results)
}

func (p *Pipeline) persist(ctx context.Context, r *run) error {
	if r.conv == nil {
		conv, err := p.store.CreateConversation(ctx, r.req.User.ID)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		r.conv = conv
	}
	if _, err := p.store.AppendMessage(ctx, r.conv.ID, conversation.RoleUser, r.req.Utterance, nil); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	meta := turnMetadata{Command: r.command, Fallback: r.viaRule, Results: r.results}
	if _, err := p.store.AppendMessage(ctx, r.conv.ID, conversation.RoleAgent, r.reply, meta); err != nil {
		return fmt.Errorf("append agent message: %w", err)
	}
	if r.token != "" {
		if err := p.store.SetContinuationToken(ctx, r.conv.ID, r.token); err != nil {
			return fmt.Errorf("save continuation token: %w", err)
		}
	}
	return nil
}

type turnMetadata struct {
	Command  commands.Name   `json:"command,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
	Results  []CommandResult `json:"results"`
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// complete makes one model call, threading the continuation token.
func (p *Pipeline) complete(ctx context.Context, r *run, prompt string) (string, error) {
	c, err := p.llm.Complete(ctx, llm.Request{Prompt: prompt, ContinuationToken: r.token})
	if err != nil {
		return "", err
	}
	if c.ContinuationToken != "" {
		r.token = c.ContinuationToken
	}
	return c.Output, nil
}

func (p *Pipeline) render(kind templates.Kind, data any) (string, error) {
	out, err := p.renderer.Render(kind, data)
	if err != nil {
		return "", &PromptError{Kind: kind, Err: err}
	}
	return out, nil
}

// stageFailure ends a run at identify or extract. Only model call failures
// count as upstream; a prompt that cannot be rendered is a local fault.
func (p *Pipeline) stageFailure(r *run, stage string, err error) Result {
	var pe *PromptError
	if errors.As(err, &pe) {
		r.log.Error().Err(err).Str("stage", stage).Msg("prompt rendering failed")
		return p.fail(r, err, msgInternal)
	}
	return p.fail(r, &UpstreamServiceError{Stage: stage, Err: err}, msgUpstream)
}

func (p *Pipeline) fail(r *run, err error, message string) Result {
	r.trace.fail()
	sessionID := r.req.ConversationID
	if r.conv != nil {
		sessionID = r.conv.ID
	}
	return Result{Success: false, Message: message, SessionID: sessionID, Err: err}
}

func validationText(err error) string {
	var ve *commands.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return strings.Join(parts, "; ")
}

func executionText(err error) string {
	var ee *commands.ExecutionError
	if errors.As(err, &ee) && ee.Err != nil {
		return ee.Err.Error()
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
