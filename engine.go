// Package appintake orchestrates LLM-driven intake conversations: it owns
// session lifecycle, the per-phase tool policy, and the tool-call
// processing pipeline shared by the text and voice channels.
package appintake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/formdef"
	"github.com/coniferlabs/appintake/session"
)

// Engine drives intake conversations. Sessions are independent units of
// concurrency; within one session every mutation path goes through a
// per-session mutex so a text turn and a voice tool event can never
// interleave on the same state.
type Engine struct {
	chatModel model.ToolCallingChatModel
	store     session.Store
	submitter Submitter
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Engine)

// WithSubmitter sets the collaborator that delivers finished applications
// to the session's callback URL.
func WithSubmitter(s Submitter) Option {
	return func(e *Engine) { e.submitter = s }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func New(chatModel model.ToolCallingChatModel, store session.Store, opts ...Option) *Engine {
	e := &Engine{
		chatModel: chatModel,
		store:     store,
		logger:    slog.Default(),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateSessionRequest carries everything needed to start a conversation.
// KnownData pre-populates matching fields as unconfirmed, which puts the
// session into the spot-check phase.
type CreateSessionRequest struct {
	Steps         []formdef.StepDef `json:"steps"`
	KnownData     map[string]any    `json:"known_data,omitempty"`
	CallbackURL   string            `json:"callback_url,omitempty"`
	ModelOverride string            `json:"model,omitempty"`
}

// CreateSession builds a session from a form definition and generates the
// opening assistant message.
func (e *Engine) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.State, string, error) {
	fields, steps := formdef.Build(req.Steps, req.KnownData)

	st := &session.State{
		ID:            uuid.NewString(),
		Phase:         session.InitialPhase(fields),
		Fields:        fields,
		Steps:         steps,
		CallbackURL:   req.CallbackURL,
		ModelOverride: req.ModelOverride,
		CreatedAt:     time.Now().UTC(),
	}

	greeting, err := e.greet(ctx, st)
	if err != nil {
		return nil, "", fmt.Errorf("generate greeting: %w", err)
	}
	st.AppendMessage(session.RoleAssistant, greeting, nil)

	if err := e.store.Put(ctx, st); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	e.logger.Info("session created",
		"session", st.ID, "phase", st.Phase, "fields", len(st.Fields))
	return st, greeting, nil
}

func (e *Engine) greet(ctx context.Context, st *session.State) (string, error) {
	if st.Phase != session.PhaseSpotCheck {
		return collectingGreeting, nil
	}
	msgs := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(st)),
		schema.UserMessage(greetingInstruction(st.UnconfirmedFields())),
	}
	resp, err := e.chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// HandleTurn processes one user message: it offers the phase-appropriate
// tools to the model, applies any resulting tool calls, replays each tool
// result for a follow-up reply, and advances the phase. Terminal sessions
// return a fixed reply and mutate nothing.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, userText string) (string, []FieldUpdate, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.getSession(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	if st.Phase.Terminal() {
		return terminalReply, nil, nil
	}

	st.AppendMessage(session.RoleUser, userText, nil)

	tools := toolsForPhase(st)
	msgs := llmMessages(st)

	resp, err := e.generate(ctx, st, msgs, tools, true)
	if err != nil {
		return "", nil, fmt.Errorf("chat turn: %w", err)
	}

	reply := resp.Content
	var updates []FieldUpdate

	if len(resp.ToolCalls) > 0 {
		calls := fromSchemaCalls(resp.ToolCalls)
		var results map[string]string
		updates, results = processToolCalls(e.logger, st, calls)

		// Every tool call gets exactly one result before the next model
		// turn.
		followMsgs := append(msgs, resp)
		for _, call := range resp.ToolCalls {
			followMsgs = append(followMsgs, schema.ToolMessage(results[call.ID], call.ID))
		}
		follow, err := e.generate(ctx, st, followMsgs, tools, false)
		if err != nil {
			return "", nil, fmt.Errorf("follow-up turn: %w", err)
		}
		reply = follow.Content
	}

	if st.AdvancePhase() {
		e.logger.Info("phase transition", "session", st.ID, "phase", st.Phase)
	}

	st.AppendMessage(session.RoleAssistant, reply, extractedValues(updates))

	if err := e.store.Put(ctx, st); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	return reply, updates, nil
}

// ToolOutcome is the result of applying one externally delivered tool call
// (the voice channel's path into the shared processor).
type ToolOutcome struct {
	Updates      []FieldUpdate
	Result       string
	Phase        session.Phase
	PhaseChanged bool
}

// HandleToolCall applies a single tool call issued outside a text turn.
// It shares the text channel's processor, locking, and phase evaluation.
func (e *Engine) HandleToolCall(ctx context.Context, sessionID string, call ToolCall) (*ToolOutcome, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Phase.Terminal() {
		return &ToolOutcome{Result: terminalReply, Phase: st.Phase}, nil
	}

	updates, results := processToolCalls(e.logger, st, []ToolCall{call})
	changed := st.AdvancePhase()
	if changed {
		e.logger.Info("phase transition", "session", st.ID, "phase", st.Phase)
	}

	if err := e.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &ToolOutcome{
		Updates:      updates,
		Result:       results[call.ID],
		Phase:        st.Phase,
		PhaseChanged: changed,
	}, nil
}

// Session returns a snapshot of the session state.
func (e *Engine) Session(ctx context.Context, sessionID string) (*session.State, error) {
	return e.getSession(ctx, sessionID)
}

// SessionTools returns the tool set currently offered for the session,
// used by the voice channel to configure its model stream.
func (e *Engine) SessionTools(ctx context.Context, sessionID string) ([]*schema.ToolInfo, error) {
	st, err := e.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toolsForPhase(st), nil
}

func (e *Engine) getSession(ctx context.Context, sessionID string) (*session.State, error) {
	st, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return st, nil
}

func (e *Engine) generate(ctx context.Context, st *session.State, msgs []*schema.Message, tools []*schema.ToolInfo, force bool) (*schema.Message, error) {
	opts := make([]model.Option, 0, 3)
	if st.ModelOverride != "" {
		opts = append(opts, model.WithModel(st.ModelOverride))
	}
	if len(tools) > 0 {
		opts = append(opts, model.WithTools(tools))
		if force && len(tools) == 1 {
			opts = append(opts, model.WithToolChoice(schema.ToolChoiceForced, tools[0].Name))
		}
	}
	return e.chatModel.Generate(ctx, msgs, opts...)
}

// llmMessages converts the transcript to model messages. The history
// starts with the generated greeting, so a synthetic user opener is
// prepended to satisfy providers requiring a leading user turn.
func llmMessages(st *session.State) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(st.Messages)+2)
	msgs = append(msgs, schema.SystemMessage(buildSystemPrompt(st)))
	if len(st.Messages) > 0 && st.Messages[0].Role == session.RoleAssistant {
		msgs = append(msgs, schema.UserMessage("Hello, let's get started."))
	}
	for _, m := range st.Messages {
		switch m.Role {
		case session.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		default:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	return msgs
}

func fromSchemaCalls(calls []schema.ToolCall) []ToolCall {
	out := make([]ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return out
}

func extractedValues(updates []FieldUpdate) map[string]field.Value {
	var out map[string]field.Value
	for _, u := range updates {
		if u.ValidationError != "" {
			continue
		}
		if out == nil {
			out = make(map[string]field.Value)
		}
		out[u.FieldID] = u.Value
	}
	return out
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}
