package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/cv"
	"github.com/artem13815/cvchat/pkg/llm"
	"github.com/artem13815/cvchat/pkg/prompt"
	"github.com/artem13815/cvchat/pkg/tools"
)

type replyFunc func(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error)

// scriptedLLM answers each call with the next scripted reply; the last reply repeats.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []replyFunc
	requests []llm.CompletionRequest
}

func script(replies ...replyFunc) *scriptedLLM { return &scriptedLLM{replies: replies} }

func (s *scriptedLLM) CreateChatCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	reply := s.replies[i]
	s.mu.Unlock()
	return reply(ctx, req)
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedLLM) request(i int) llm.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func text(s string) replyFunc {
	return func(context.Context, llm.CompletionRequest) (llm.Completion, error) {
		return llm.Completion{ID: "gen", FinishReason: "stop", Message: chat.AssistantText(s)}, nil
	}
}

func call(id, name, args string) chat.ToolCall {
	return chat.ToolCall{ID: id, Type: "function", Function: chat.FunctionCall{Name: name, Arguments: args}}
}

func toolCalls(calls ...chat.ToolCall) replyFunc {
	return func(context.Context, llm.CompletionRequest) (llm.Completion, error) {
		return llm.Completion{FinishReason: "tool_calls", Message: chat.Message{Role: chat.RoleAssistant, ToolCalls: calls}}, nil
	}
}

func failing(err error) replyFunc {
	return func(context.Context, llm.CompletionRequest) (llm.Completion, error) { return llm.Completion{}, err }
}

type funcTool struct {
	name string
	fn   func(ctx context.Context, args map[string]any) (any, error)
}

func (f funcTool) Name() string             { return f.name }
func (f funcTool) Description() string      { return f.name }
func (f funcTool) Schema() tools.JSONSchema { return tools.JSONSchema{Type: "object"} }
func (f funcTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}

type fixture struct {
	orch     *Orchestrator
	llm      *scriptedLLM
	messages *chat.MemoryStore
	cvs      *cv.MemoryStore
	guard    *MemoryGuard
	registry *tools.Registry
	conv     uuid.UUID
}

func newFixture(t *testing.T, l *scriptedLLM, cfg Config, extra ...tools.Tool) *fixture {
	t.Helper()
	messages := chat.NewMemoryStore()
	cvs := cv.NewMemoryStore()
	registry, err := tools.NewDefaultRegistry(cvs)
	require.NoError(t, err)
	for _, tool := range extra {
		require.NoError(t, registry.Register(tool))
	}
	pcfg, err := prompt.DefaultConfig()
	require.NoError(t, err)
	guard := NewMemoryGuard()
	orch := New(Deps{
		Messages: messages,
		CV:       cvs,
		Prompts:  prompt.NewBuilder(pcfg, registry, "en"),
		LLM:      l,
		Tools:    registry,
		Guard:    guard,
	}, cfg)
	return &fixture{orch: orch, llm: l, messages: messages, cvs: cvs, guard: guard, registry: registry, conv: uuid.New()}
}

func (f *fixture) stored(t *testing.T) []chat.Message {
	t.Helper()
	all, err := f.messages.List(context.Background(), f.conv)
	require.NoError(t, err)
	return all
}

// assertPairing checks that every tool message answers an earlier call and
// every call is answered exactly once before the next assistant text.
func assertPairing(t *testing.T, log []chat.Message) {
	t.Helper()
	open := map[string]bool{}
	answered := map[string]int{}
	for i, m := range log {
		switch {
		case m.Role == chat.RoleTool:
			require.True(t, open[m.ToolCallID], "message %d answers unknown call %q", i, m.ToolCallID)
			answered[m.ToolCallID]++
			require.Equal(t, 1, answered[m.ToolCallID], "call %q answered twice", m.ToolCallID)
		case m.Role == chat.RoleAssistant:
			for id := range open {
				require.Equal(t, 1, answered[id], "call %q unanswered before message %d", id, i)
			}
			open = map[string]bool{}
			for _, tc := range m.ToolCalls {
				open[tc.ID] = true
			}
		}
	}
	for id := range open {
		require.Equal(t, 1, answered[id], "call %q never answered", id)
	}
}

func TestScenarioAPlainReply(t *testing.T) {
	f := newFixture(t, script(text("¡Hola! ¿Cómo te llamas?")), Config{})

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("Hola"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 1, f.llm.calls())
	req := f.llm.request(0)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, chat.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "Hola", req.Messages[1].Content.String())
	assert.Equal(t, llm.ToolChoiceAuto, req.ToolChoice)
	assert.NotEmpty(t, req.Tools)

	log := f.stored(t)
	require.Len(t, log, 2)
	assert.Equal(t, chat.RoleUser, log[0].Role)
	assert.Equal(t, chat.RoleAssistant, log[1].Role)
	assert.Equal(t, chat.ReplyText, res.Reply.Kind)
	assert.Empty(t, res.Notifications)
	assert.False(t, f.guard.InFlight(f.conv))
}

func TestScenarioBToolRoundTrip(t *testing.T) {
	f := newFixture(t, script(
		toolCalls(call("call_1", "save_personal_info", `{"full_name":"Jane","email":"jane@x.com"}`)),
		text("Nice to meet you, Jane!"),
	), Config{})

	_, err := f.cvs.Update(context.Background(), f.conv, func(d *cv.Data) error {
		return d.MergePersonalData(cv.PersonalData{Phone: "+34 600"})
	})
	require.NoError(t, err)

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("My name is Jane and my email is jane@x.com"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 2, res.RoundTrips)

	log := f.stored(t)
	require.Len(t, log, 4)
	assert.Equal(t, []chat.Role{chat.RoleUser, chat.RoleAssistant, chat.RoleTool, chat.RoleAssistant},
		[]chat.Role{log[0].Role, log[1].Role, log[2].Role, log[3].Role})
	assert.Equal(t, "call_1", log[2].ToolCallID)
	assertPairing(t, log)

	d, err := f.cvs.Get(context.Background(), f.conv)
	require.NoError(t, err)
	assert.Equal(t, "Jane", d.PersonalData.Name)
	assert.Equal(t, "jane@x.com", d.PersonalData.Email)
	assert.Equal(t, "+34 600", d.PersonalData.Phone)
	assert.Empty(t, d.PersonalData.Address)

	second := f.llm.request(1)
	require.Len(t, second.Messages, 4)
	assert.Contains(t, second.Messages[0].Content.String(), "- Name: Jane", "the prompt is rebuilt from the current snapshot")
}

func TestScenarioCToolErrorContinues(t *testing.T) {
	bad := funcTool{name: "explode", fn: func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("bad args")
	}}
	f := newFixture(t, script(
		toolCalls(call("call_1", "explode", `{}`)),
		text("Sorry, something went wrong."),
	), Config{}, bad)

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("go"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)

	log := f.stored(t)
	require.Len(t, log, 4)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(log[2].Content.String()), &payload))
	assert.Equal(t, map[string]string{"error": "bad args"}, payload)

	require.Len(t, res.Notifications, 1)
	assert.Equal(t, LevelWarning, res.Notifications[0].Level)
	assert.Equal(t, "Tool Error", res.Notifications[0].Title)
}

func TestScenarioDNetworkFailure(t *testing.T) {
	f := newFixture(t, script(failing(&llm.CompletionError{Upstream: "connection refused", Err: errors.New("dial tcp")})), Config{})

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("hi"))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, llm.ErrCompletionFailed)

	log := f.stored(t)
	require.Len(t, log, 1)
	assert.Equal(t, chat.RoleUser, log[0].Role)

	require.Len(t, res.Notifications, 1)
	assert.Equal(t, LevelError, res.Notifications[0].Level)
	assert.Contains(t, res.Notifications[0].Message, "connection refused")
	assert.False(t, f.guard.InFlight(f.conv))
}

func TestPromptFailureIsFatal(t *testing.T) {
	f := newFixture(t, script(text("unused")), Config{})
	f.orch.prompts = prompt.NewBuilder(prompt.Config{}, f.registry, "")

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("hi"))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, prompt.ErrInvalidConfig)
	assert.Equal(t, 0, f.llm.calls())
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "Configuration Error", res.Notifications[0].Title)
	assert.Len(t, f.stored(t), 1)
}

func TestPairingWithMixedBatch(t *testing.T) {
	f := newFixture(t, script(
		toolCalls(
			call("a", "save_skills", `{"skills":["Go"]}`),
			call("b", "no_such_tool", `{}`),
			call("c", "save_skills", `{"skills":"not a list"}`),
			call("", "add_suggestions", `{"suggestions":["Add experience"]}`),
		),
		text("Done."),
	), Config{})

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("skills"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)

	log := f.stored(t)
	require.Len(t, log, 7)
	assertPairing(t, log)
	assert.Equal(t, "a", log[2].ToolCallID)
	assert.Equal(t, "b", log[3].ToolCallID)
	assert.Equal(t, "c", log[4].ToolCallID)
	assert.NotEmpty(t, log[5].ToolCallID, "missing call ids are generated")
	assert.Equal(t, log[1].ToolCalls[3].ID, log[5].ToolCallID)

	assert.Contains(t, log[3].Content.String(), "unknown tool")
	assert.Contains(t, log[4].Content.String(), `"status":"error"`)
	assert.Len(t, res.Notifications, 2)

	assert.Equal(t, []string{"Add experience"}, log[6].Suggestions)
	assert.Equal(t, chat.ReplySuggestions, res.Reply.Kind)
}

func TestBatchResultsKeepRequestOrder(t *testing.T) {
	slow := funcTool{name: "slow", fn: func(context.Context, map[string]any) (any, error) {
		time.Sleep(30 * time.Millisecond)
		return "slow", nil
	}}
	fast := funcTool{name: "fast", fn: func(context.Context, map[string]any) (any, error) {
		return "fast", nil
	}}
	f := newFixture(t, script(toolCalls(call("1", "slow", ""), call("2", "fast", "")), text("ok")), Config{}, slow, fast)

	_, err := f.orch.Send(context.Background(), f.conv, chat.Text("go"))
	require.NoError(t, err)

	log := f.stored(t)
	require.Len(t, log, 5)
	assert.Equal(t, `"slow"`, log[2].Content.String())
	assert.Equal(t, `"fast"`, log[3].Content.String())
}

func TestSlidingWindow(t *testing.T) {
	f := newFixture(t, script(text("ok")), Config{})
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		_, err := f.messages.Append(ctx, f.conv, chat.UserText(fmt.Sprintf("q%d", i)), chat.AssistantText(fmt.Sprintf("a%d", i)))
		require.NoError(t, err)
	}

	_, err := f.orch.Send(ctx, f.conv, chat.Text("latest"))
	require.NoError(t, err)

	req := f.llm.request(0)
	assert.LessOrEqual(t, len(req.Messages)-1, DefaultHistoryWindow)
	assert.Equal(t, "latest", req.Messages[len(req.Messages)-1].Content.String())
	assert.Len(t, f.stored(t), 32, "the store keeps the full history")
}

func TestWindowDropsOrphanToolMessages(t *testing.T) {
	history := []chat.Message{
		chat.UserText("u"),
		{Role: chat.RoleAssistant, ToolCalls: []chat.ToolCall{call("x", "save_skills", "{}")}},
		chat.ToolResult("x", "{}"),
		chat.AssistantText("a"),
	}
	w := Window(history, 2)
	require.Len(t, w, 1)
	assert.Equal(t, "a", w[0].Content.String())
	assert.Len(t, Window(history, 0), 4)
}

func TestRoundTripLimit(t *testing.T) {
	f := newFixture(t, script(toolCalls(call("", "save_skills", `{"skills":["Go"]}`))), Config{MaxRoundTrips: 3})

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("loop"))
	require.NoError(t, err)
	assert.Equal(t, StateRoundTripLimit, res.State)
	assert.Equal(t, 3, f.llm.calls())
	assert.Equal(t, 3, res.RoundTrips)

	log := f.stored(t)
	assertPairing(t, log)
	last := log[len(log)-1]
	assert.Equal(t, chat.RoleAssistant, last.Role)
	assert.Equal(t, FallbackText, last.Content.String())
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, LevelWarning, res.Notifications[0].Level)
	assert.False(t, f.guard.InFlight(f.conv))
}

func TestTurnInFlightIsRejected(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	blocking := func(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
		close(entered)
		<-unblock
		return text("done")(ctx, req)
	}
	f := newFixture(t, script(blocking), Config{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Send(context.Background(), f.conv, chat.Text("first"))
		done <- err
	}()
	<-entered

	_, err := f.orch.Send(context.Background(), f.conv, chat.Text("second"))
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, f.guard.InFlight(f.conv))
	assert.Len(t, f.stored(t), 2, "the rejected message is not stored")
}

func TestCallTimeoutFailsTurn(t *testing.T) {
	hang := func(ctx context.Context, _ llm.CompletionRequest) (llm.Completion, error) {
		<-ctx.Done()
		return llm.Completion{}, &llm.CompletionError{Err: ctx.Err()}
	}
	f := newFixture(t, script(hang), Config{CallTimeout: 20 * time.Millisecond})

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("hi"))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.False(t, f.guard.InFlight(f.conv))
}

func TestSkillSelectorWaitsForUser(t *testing.T) {
	f := newFixture(t, script(
		toolCalls(call("sel", "render_skill_selector", `{"skillCategory":"technical","jobTitle":"Backend developer"}`)),
		text("Great choice! Saved."),
	), Config{})
	ctx := context.Background()

	res, err := f.orch.Send(ctx, f.conv, chat.Text("help me with skills"))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingUser, res.State)
	assert.Equal(t, 1, f.llm.calls())
	require.Equal(t, chat.ReplyWidget, res.Reply.Kind)
	assert.Equal(t, "sel", res.Reply.Widget.ToolCallID)
	assert.Equal(t, "sel", res.Reply.Widget.Props["toolCallId"])

	log := f.stored(t)
	require.Len(t, log, 3)
	assertPairing(t, log)

	_, err = f.orch.SelectSkills(ctx, f.conv, "nope", []string{"Go"})
	assert.ErrorIs(t, err, ErrUnknownWidget)

	res, err = f.orch.SelectSkills(ctx, f.conv, "sel", []string{"Go", " ", "SQL"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)

	log = f.stored(t)
	require.Len(t, log, 5)
	assert.Equal(t, "I've selected the following skills: Go, SQL", log[3].Content.String())
	assertPairing(t, log)
}

func TestGreet(t *testing.T) {
	f := newFixture(t, script(text("¡Hola! Soy tu asistente.")), Config{})
	ctx := context.Background()

	res, err := f.orch.Greet(ctx, f.conv)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)

	req := f.llm.request(0)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, GreetingText, req.Messages[1].Content.String())

	log := f.stored(t)
	require.Len(t, log, 1)
	assert.Equal(t, chat.RoleAssistant, log[0].Role)

	_, err = f.orch.Greet(ctx, f.conv)
	assert.ErrorIs(t, err, ErrConversationStarted)
}

func TestSendRejectsEmptyInput(t *testing.T) {
	f := newFixture(t, script(text("x")), Config{})
	_, err := f.orch.Send(context.Background(), f.conv, chat.Text("   "))
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = f.orch.Send(context.Background(), f.conv, chat.Content{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, f.llm.calls())
}

func TestEmptyStopIsValid(t *testing.T) {
	empty := func(context.Context, llm.CompletionRequest) (llm.Completion, error) {
		return llm.Completion{FinishReason: "stop", Message: chat.Message{Role: chat.RoleAssistant}}, nil
	}
	f := newFixture(t, script(empty), Config{})

	res, err := f.orch.Send(context.Background(), f.conv, chat.Text("hi"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, chat.ReplyEmpty, res.Reply.Kind)
	assert.Len(t, f.stored(t), 1)
}

func TestWithModelOverridesConfiguredModel(t *testing.T) {
	f := newFixture(t, script(text("ok")), Config{Model: "default-model"})

	_, err := f.orch.Send(WithModel(context.Background(), "other-model:free"), f.conv, chat.Text("hi"))
	require.NoError(t, err)
	_, err = f.orch.Send(WithModel(context.Background(), " "), f.conv, chat.Text("again"))
	require.NoError(t, err)

	assert.Equal(t, "other-model:free", f.llm.request(0).Model)
	assert.Equal(t, "default-model", f.llm.request(1).Model)
}

func TestGeneratedCallIDsDoNotLeakIntoCompleterSlice(t *testing.T) {
	calls := []chat.ToolCall{call("", "save_skills", `{"skills":["Go"]}`)}
	f := newFixture(t, script(toolCalls(calls...)), Config{MaxRoundTrips: 3})

	_, err := f.orch.Send(context.Background(), f.conv, chat.Text("loop"))
	require.NoError(t, err)
	assert.Empty(t, calls[0].ID)

	seen := map[string]bool{}
	for _, m := range f.stored(t) {
		for _, tc := range m.ToolCalls {
			require.NotEmpty(t, tc.ID)
			assert.False(t, seen[tc.ID], "call id %q reused across round trips", tc.ID)
			seen[tc.ID] = true
		}
	}
	assert.Len(t, seen, 3)
}

func TestWindowStripsUnansweredCalls(t *testing.T) {
	history := []chat.Message{
		chat.UserText("u"),
		{Role: chat.RoleAssistant, Content: chat.Text("saving"), ToolCalls: []chat.ToolCall{call("x", "save_skills", "{}"), call("y", "save_skills", "{}")}},
		chat.ToolResult("x", "{}"),
		{Role: chat.RoleAssistant, ToolCalls: []chat.ToolCall{call("z", "save_skills", "{}")}},
		chat.AssistantText("done"),
		chat.ToolResult("x", "{}"),
	}

	w := Window(history, 0)
	assertPairing(t, w)
	require.Len(t, w, 4)
	assert.Equal(t, []chat.ToolCall{call("x", "save_skills", "{}")}, w[1].ToolCalls)
	assert.Equal(t, "done", w[3].Content.String())
	assert.Len(t, history[1].ToolCalls, 2, "input history is left untouched")
}

func TestTurnAfterDeletingToolCallMessage(t *testing.T) {
	f := newFixture(t, script(
		toolCalls(call("call_1", "save_skills", `{"skills":["Go"]}`), call("call_2", "save_skills", `{"skills":["SQL"]}`)),
		text("saved"),
		text("next reply"),
	), Config{})
	ctx := context.Background()

	_, err := f.orch.Send(ctx, f.conv, chat.Text("I know Go and SQL"))
	require.NoError(t, err)
	log := f.stored(t)
	require.Len(t, log, 5)

	require.NoError(t, f.messages.Delete(ctx, f.conv, log[1].ID))
	remaining := f.stored(t)
	require.Len(t, remaining, 2)
	for _, m := range remaining {
		assert.NotEqual(t, chat.RoleTool, m.Role)
	}

	_, err = f.orch.Send(ctx, f.conv, chat.Text("next"))
	require.NoError(t, err)
	req := f.llm.request(f.llm.calls() - 1)
	assertPairing(t, req.Messages[1:])
	assertPairing(t, f.stored(t))
}

func TestTurnAfterDeletingToolResult(t *testing.T) {
	f := newFixture(t, script(
		toolCalls(call("call_1", "save_skills", `{"skills":["Go"]}`), call("call_2", "save_skills", `{"skills":["SQL"]}`)),
		text("saved"),
		text("next reply"),
	), Config{})
	ctx := context.Background()

	_, err := f.orch.Send(ctx, f.conv, chat.Text("I know Go and SQL"))
	require.NoError(t, err)
	log := f.stored(t)
	require.Equal(t, chat.RoleTool, log[3].Role)

	require.NoError(t, f.messages.Delete(ctx, f.conv, log[3].ID))
	assert.Len(t, f.stored(t), 2)

	_, err = f.orch.Send(ctx, f.conv, chat.Text("next"))
	require.NoError(t, err)
	assertPairing(t, f.llm.request(f.llm.calls()-1).Messages[1:])
}

func TestTurnAfterClear(t *testing.T) {
	f := newFixture(t, script(
		toolCalls(call("call_1", "save_skills", `{"skills":["Go"]}`)),
		text("saved"),
		text("fresh start"),
	), Config{})
	ctx := context.Background()

	_, err := f.orch.Send(ctx, f.conv, chat.Text("I know Go"))
	require.NoError(t, err)
	require.NoError(t, f.messages.Clear(ctx, f.conv))

	res, err := f.orch.Send(ctx, f.conv, chat.Text("again"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	req := f.llm.request(f.llm.calls() - 1)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "again", req.Messages[1].Content.String())
	assert.Len(t, f.stored(t), 2)
}
