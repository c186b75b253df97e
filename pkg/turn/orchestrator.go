package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/cv"
	"github.com/artem13815/cvchat/pkg/llm"
	"github.com/artem13815/cvchat/pkg/logger"
	"github.com/artem13815/cvchat/pkg/prompt"
	"github.com/artem13815/cvchat/pkg/tools"
)

const (
	DefaultHistoryWindow = 20
	DefaultMaxRoundTrips = 5

	// GreetingText opens an empty conversation; it is sent but not stored.
	GreetingText = "Hola"
	FallbackText = "Sorry, I couldn't finish that. Could you rephrase your request, maybe one step at a time?"
)

var (
	ErrEmptyMessage        = errors.New("message is empty")
	ErrConversationStarted = errors.New("conversation already has messages")
	ErrUnknownWidget       = errors.New("no skill selector with this tool call id")
)

type PromptBuilder interface {
	Build(snapshot cv.Data) (prompt.Prompt, error)
}

type ToolExecutor interface {
	Execute(ctx context.Context, name, rawArguments string) tools.Outcome
}

type Config struct {
	Model         string
	HistoryWindow int
	MaxRoundTrips int
	// CallTimeout bounds each completion call; zero means no extra bound.
	CallTimeout time.Duration
}

type Deps struct {
	Messages chat.Store
	CV       cv.Store
	Prompts  PromptBuilder
	LLM      llm.Completer
	Tools    ToolExecutor
	Guard    Guard
	Log      *zap.SugaredLogger
}

// Result describes one finished turn. Err holds the cause of a failed turn;
// the turn's messages stay stored either way.
type Result struct {
	ConversationID uuid.UUID      `json:"conversationId"`
	State          State          `json:"state"`
	Messages       []chat.Message `json:"messages"`
	Reply          chat.Reply     `json:"reply"`
	Notifications  []Notification `json:"notifications,omitempty"`
	RoundTrips     int            `json:"roundTrips"`
	Err            error          `json:"-"`
}

// Orchestrator drives a user turn to completion across LLM round trips.
type Orchestrator struct {
	messages chat.Store
	cvs      cv.Store
	prompts  PromptBuilder
	llm      llm.Completer
	tools    ToolExecutor
	guard    Guard
	cfg      Config
	log      *zap.SugaredLogger
}

func New(d Deps, cfg Config) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.MaxRoundTrips <= 0 {
		cfg.MaxRoundTrips = DefaultMaxRoundTrips
	}
	guard := d.Guard
	if guard == nil {
		guard = NewMemoryGuard()
	}
	return &Orchestrator{
		messages: d.Messages,
		cvs:      d.CV,
		prompts:  d.Prompts,
		llm:      d.LLM,
		tools:    d.Tools,
		guard:    guard,
		cfg:      cfg,
		log:      logger.OrNop(d.Log),
	}
}

type modelKey struct{}

// WithModel overrides the configured model for turns run with ctx.
func WithModel(ctx context.Context, model string) context.Context {
	if strings.TrimSpace(model) == "" {
		return ctx
	}
	return context.WithValue(ctx, modelKey{}, model)
}

func modelFrom(ctx context.Context, def string) string {
	if m, ok := ctx.Value(modelKey{}).(string); ok {
		return m
	}
	return def
}

type turnInput struct {
	user *chat.Message
	// ephemeral messages precede the stored history in every request but are never stored
	ephemeral []chat.Message
	// precheck runs under the guard against the stored history
	precheck func(history []chat.Message) error
}

// Send appends a user message and runs the turn.
func (o *Orchestrator) Send(ctx context.Context, conversationID uuid.UUID, content chat.Content) (Result, error) {
	if content.IsNull() || (!content.IsMultipart() && strings.TrimSpace(content.String()) == "") ||
		(content.IsMultipart() && len(content.Parts()) == 0) {
		return Result{}, ErrEmptyMessage
	}
	msg := chat.Message{Role: chat.RoleUser, Content: content}
	return o.run(ctx, conversationID, turnInput{user: &msg})
}

// SelectSkills feeds the user's choice in a skill selector back to the model
// as a user message. The selector's tool call was already answered when the
// widget was rendered.
func (o *Orchestrator) SelectSkills(ctx context.Context, conversationID uuid.UUID, toolCallID string, skills []string) (Result, error) {
	var picked []string
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			picked = append(picked, s)
		}
	}
	text := "I've selected the following skills: " + strings.Join(picked, ", ")
	if len(picked) == 0 {
		text = "I don't want to add any of these skills."
	}
	msg := chat.UserText(text)
	return o.run(ctx, conversationID, turnInput{
		user: &msg,
		precheck: func(history []chat.Message) error {
			for _, m := range history {
				if m.Role == chat.RoleTool && m.ToolCallID == toolCallID &&
					m.Widget != nil && m.Widget.Type == tools.WidgetSkillSelector {
					return nil
				}
			}
			return fmt.Errorf("%w: %q", ErrUnknownWidget, toolCallID)
		},
	})
}

// Greet lets the assistant open an empty conversation.
func (o *Orchestrator) Greet(ctx context.Context, conversationID uuid.UUID) (Result, error) {
	return o.run(ctx, conversationID, turnInput{
		ephemeral: []chat.Message{chat.UserText(GreetingText)},
		precheck: func(history []chat.Message) error {
			if len(history) > 0 {
				return ErrConversationStarted
			}
			return nil
		},
	})
}

func (o *Orchestrator) run(ctx context.Context, conversationID uuid.UUID, in turnInput) (Result, error) {
	release, err := o.guard.Acquire(ctx, conversationID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	log := logger.WithConversation(o.log, conversationID)
	defer logger.LogDuration(log, "turn", time.Now())

	if in.precheck != nil {
		history, err := o.messages.List(ctx, conversationID)
		if err != nil {
			return Result{}, fmt.Errorf("list messages: %w", err)
		}
		if err := in.precheck(history); err != nil {
			return Result{}, err
		}
	}

	res := Result{ConversationID: conversationID}
	if in.user != nil {
		stored, err := o.messages.Append(ctx, conversationID, *in.user)
		if err != nil {
			return Result{}, fmt.Errorf("append user message: %w", err)
		}
		res.Messages = append(res.Messages, stored...)
	}

	n := &notifier{log: log}
	ctx = tools.WithConversation(ctx, conversationID)

	var (
		state       = StateAwaitingCompletion
		pending     chat.Message
		widget      *chat.Widget
		suggestions []string
	)
	fail := func(title, msg string, cause error) {
		res.Err = cause
		n.fail(title, msg)
		state = StateFailed
	}

	for !state.Terminal() {
		switch state {
		case StateAwaitingCompletion:
			if res.RoundTrips >= o.cfg.MaxRoundTrips {
				stored, err := o.messages.Append(ctx, conversationID, chat.AssistantText(FallbackText))
				if err != nil {
					fail("Storage Error", err.Error(), err)
					continue
				}
				res.Messages = append(res.Messages, stored...)
				res.Reply = chat.Classify(stored[0])
				n.warn("Round-trip Limit", fmt.Sprintf("The assistant called tools %d times in a row; the turn was stopped.", res.RoundTrips))
				state = StateRoundTripLimit
				continue
			}
			res.RoundTrips++

			comp, err := o.complete(ctx, conversationID, in.ephemeral, log)
			switch {
			case errors.Is(err, prompt.ErrInvalidConfig):
				fail("Configuration Error", "System prompt is not available: "+err.Error(), err)
				continue
			case err != nil:
				fail("Chat Error", "Failed to get response: "+upstreamText(err), err)
				continue
			}

			msg := chat.Normalize(comp.Message)
			msg.Role = chat.RoleAssistant
			if msg.HasToolCalls() {
				ensureCallIDs(&msg)
				stored, err := o.messages.Append(ctx, conversationID, msg)
				if err != nil {
					fail("Storage Error", err.Error(), err)
					continue
				}
				res.Messages = append(res.Messages, stored...)
				pending = stored[0]
				state = StateAwaitingToolResults
				continue
			}

			msg.Suggestions = append(suggestions, msg.Suggestions...)
			if msg.Content.String() != "" || len(msg.Suggestions) > 0 {
				stored, err := o.messages.Append(ctx, conversationID, msg)
				if err != nil {
					fail("Storage Error", err.Error(), err)
					continue
				}
				res.Messages = append(res.Messages, stored...)
				msg = stored[0]
			} else {
				log.Infow("empty assistant turn", "finish_reason", comp.FinishReason)
			}
			res.Reply = classify(msg, widget)
			state = StateDone

		case StateAwaitingToolResults:
			outcomes := o.executeBatch(ctx, pending.ToolCalls, log)
			results := make([]chat.Message, 0, len(outcomes))
			interactiveOnly := true
			for i, out := range outcomes {
				call := pending.ToolCalls[i]
				m := chat.ToolResult(call.ID, out.Content)
				if out.Widget != nil {
					w := bindWidget(*out.Widget, call.ID)
					m.Widget = &w
					widget = &w
				}
				suggestions = append(suggestions, out.Suggestions...)
				if out.Err != nil {
					n.warn("Tool Error", fmt.Sprintf("Failed to execute tool %s: %v", call.Function.Name, out.Err))
				}
				if !out.Interactive || out.Err != nil {
					interactiveOnly = false
				}
				results = append(results, m)
			}
			stored, err := o.messages.Append(ctx, conversationID, results...)
			if err != nil {
				fail("Storage Error", err.Error(), err)
				continue
			}
			res.Messages = append(res.Messages, stored...)

			if interactiveOnly {
				reply := pending
				reply.Suggestions = append(suggestions, reply.Suggestions...)
				res.Reply = classify(reply, widget)
				state = StateAwaitingUser
				continue
			}
			state = StateAwaitingCompletion
		}
	}

	res.State = state
	res.Notifications = n.items
	log.Infow("turn finished", "state", state.String(), "round_trips", res.RoundTrips, "appended", len(res.Messages))
	return res, nil
}

func (o *Orchestrator) complete(ctx context.Context, conversationID uuid.UUID, ephemeral []chat.Message, log *zap.SugaredLogger) (llm.Completion, error) {
	snapshot, err := o.cvs.Get(ctx, conversationID)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("load cv: %w", err)
	}
	p, err := o.prompts.Build(snapshot)
	if err != nil {
		return llm.Completion{}, err
	}
	history, err := o.messages.List(ctx, conversationID)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("list messages: %w", err)
	}
	window := Window(append(append([]chat.Message(nil), ephemeral...), history...), o.cfg.HistoryWindow)

	req := llm.CompletionRequest{
		Model:    modelFrom(ctx, o.cfg.Model),
		Messages: append([]chat.Message{{Role: chat.RoleSystem, Content: chat.Text(p.System)}}, window...),
		Tools:    p.Tools,
	}
	if len(p.Tools) > 0 {
		req.ToolChoice = llm.ToolChoiceAuto
	}

	if o.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
	}
	defer logger.LogDuration(log, "completion", time.Now())
	return o.llm.CreateChatCompletion(ctx, req)
}

// executeBatch runs every call of the batch concurrently. Outcomes keep the
// request order.
func (o *Orchestrator) executeBatch(ctx context.Context, calls []chat.ToolCall, log *zap.SugaredLogger) []tools.Outcome {
	outcomes := make([]tools.Outcome, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			tlog := logger.WithTool(log, call.Function.Name, call.ID)
			defer logger.LogDuration(tlog, "tool", time.Now())
			outcomes[i] = o.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
			if err := outcomes[i].Err; err != nil {
				tlog.Warnw("tool failed", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func ensureCallIDs(m *chat.Message) {
	// the completer may reuse its slice
	m.ToolCalls = append([]chat.ToolCall(nil), m.ToolCalls...)
	for i := range m.ToolCalls {
		if m.ToolCalls[i].ID == "" {
			m.ToolCalls[i].ID = "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		if m.ToolCalls[i].Type == "" {
			m.ToolCalls[i].Type = "function"
		}
	}
}

func bindWidget(w chat.Widget, callID string) chat.Widget {
	props := make(map[string]any, len(w.Props)+1)
	for k, v := range w.Props {
		props[k] = v
	}
	props["toolCallId"] = callID
	w.Props = props
	w.ToolCallID = callID
	return w
}

func classify(m chat.Message, widget *chat.Widget) chat.Reply {
	if widget != nil && m.Widget == nil {
		m.Widget = widget
	}
	return chat.Classify(m)
}

func upstreamText(err error) string {
	var ce *llm.CompletionError
	if errors.As(err, &ce) && ce.Upstream != "" {
		return ce.Upstream
	}
	return err.Error()
}
