package assistants_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/assistants"
	"github.com/effective-security/toolloop/mocks/mockllms"
	"github.com/effective-security/toolloop/mocks/mocktools"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newExecutor(t *testing.T, llm llms.Model, opts ...assistants.Option) *assistants.Executor {
	t.Helper()
	e, err := assistants.NewExecutor(llm, opts...)
	require.NoError(t, err)
	return e
}

func TestNewExecutor(t *testing.T) {
	_, err := assistants.NewExecutor(nil)
	assert.EqualError(t, err, "llm model is required")

	e := newExecutor(t, newScriptedModel(text("ok")))
	assert.Equal(t, assistants.DefaultName, e.Config().Name)
	assert.Equal(t, assistants.DefaultMaxRecursions, e.Config().MaxRecursions)
}

func TestExecutor_NoTools(t *testing.T) {
	ctx := context.Background()
	llm := newScriptedModel(text("The answer is 42."))
	cb := newRecorder()
	e := newExecutor(t, llm, assistants.WithName("calc"), assistants.WithCallback(cb))

	msg, err := e.Run(ctx, "what is the answer?", tools.MustRegistry(), 5)
	require.NoError(t, err)
	assert.Equal(t, llms.RoleAI, msg.Role)
	assert.Equal(t, "The answer is 42.", msg.GetContent())

	calls := llm.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	assert.Equal(t, llms.RoleHuman, calls[0][0].Role)
	assert.Equal(t, "what is the answer?", calls[0][0].GetContent())
	assert.Empty(t, llm.Options()[0].Tools)

	assert.Equal(t, 1, cb.Count("loop_start"))
	assert.Equal(t, 1, cb.Count("loop_end"))
	assert.Equal(t, 1, cb.Count("llm_start"))
	assert.Equal(t, 1, cb.Count("llm_end"))
	assert.Equal(t, 0, cb.Count("recursion"))
	require.NotNil(t, cb.result)
	assert.Len(t, cb.result.State.History, 2)
	assert.Equal(t, int64(15), cb.result.Usage.TotalTokens)
}

func TestExecutor_OneRound(t *testing.T) {
	ctx := context.Background()
	llm := newScriptedModel(
		calls(llms.ToolCall{ID: "call_1", Name: "echo", Input: map[string]any{"text": "hello"}}),
		text("done"),
	)
	echo := echoTool()
	reg := tools.MustRegistry(echo)
	e := newExecutor(t, llm, assistants.WithSystemPrompt("be brief"))

	res, err := e.Execute(ctx, nil, "say hello", reg, 5)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Message.GetContent())
	assert.Equal(t, 1, res.State.RecursionCount)
	assert.Equal(t, 5, res.State.MaxRecursions)
	assert.Equal(t, 1, echo.Count())
	assert.Equal(t, llms.Usage{InputTokens: 20, OutputTokens: 10, TotalTokens: 30}, res.Usage)

	// user, assistant with call, tool result, final
	h := res.State.History
	require.Len(t, h, 4)
	assert.Equal(t, []llms.Role{llms.RoleHuman, llms.RoleAI, llms.RoleHuman, llms.RoleAI},
		[]llms.Role{h[0].Role, h[1].Role, h[2].Role, h[3].Role})
	assert.Equal(t, []llms.ToolCallResponse{
		{ToolCallID: "call_1", Name: "echo", Content: "hello"},
	}, h[2].ToolCallResponses())

	// the second call sees the tool result
	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1], 3)
	assert.Equal(t, h[:3], calls[1])

	for _, o := range llm.Options() {
		assert.Equal(t, "be brief", o.SystemPrompt)
		require.Len(t, o.Tools, 1)
		assert.Equal(t, "echo", o.Tools[0].Function.Name)
	}
}

func TestExecutor_RecursionLimit(t *testing.T) {
	ctx := context.Background()
	llm := newScriptedModel(
		calls(llms.ToolCall{ID: "1", Name: "echo", Input: map[string]any{"text": "again"}}),
	)
	cb := newRecorder()
	e := newExecutor(t, llm, assistants.WithName("looper"), assistants.WithCallback(cb))

	_, err := e.Run(ctx, "loop forever", tools.MustRegistry(echoTool()), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, assistants.ErrRecursionLimitExceeded))
	assert.EqualError(t, err, "agent looper: recursion limit exceeded: 2")

	var rerr *assistants.RecursionLimitError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 2, rerr.MaxRecursions)
	// user, (ai, tool) x2, ai
	require.Len(t, rerr.History, 6)
	last := rerr.History[5]
	assert.Equal(t, llms.RoleAI, last.Role)
	assert.True(t, last.HasToolCalls())

	assert.Len(t, llm.Calls(), 3)
	assert.Equal(t, []int{1, 2}, cb.recursions)
	assert.Equal(t, 1, cb.Count("loop_error"))
	assert.Equal(t, 0, cb.Count("loop_end"))
}

func TestExecutor_ZeroRecursions(t *testing.T) {
	ctx := context.Background()
	reg := tools.MustRegistry(echoTool())

	t.Run("answer", func(t *testing.T) {
		llm := newScriptedModel(text("direct"))
		msg, err := newExecutor(t, llm).Run(ctx, "hi", reg, 0)
		require.NoError(t, err)
		assert.Equal(t, "direct", msg.GetContent())
	})

	t.Run("tool_request", func(t *testing.T) {
		echo := echoTool()
		llm := newScriptedModel(calls(llms.ToolCall{ID: "1", Name: "echo"}))
		_, err := newExecutor(t, llm).Run(ctx, "hi", tools.MustRegistry(echo), 0)
		require.Error(t, err)
		var rerr *assistants.RecursionLimitError
		require.True(t, errors.As(err, &rerr))
		assert.Len(t, rerr.History, 2)
		assert.Equal(t, 0, echo.Count())
		assert.Len(t, llm.Calls(), 1)
	})
}

func TestExecutor_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	llm := newScriptedModel(text("never"))
	e := newExecutor(t, llm)

	_, err := e.Run(ctx, "hi", tools.MustRegistry(), -1)
	assert.True(t, errors.Is(err, assistants.ErrInvalidMaxRecursions))
	assert.EqualError(t, err, "-1: invalid max recursions")

	_, err = e.Run(ctx, "hi", nil, 3)
	assert.True(t, errors.Is(err, assistants.ErrNilRegistry))

	assert.Empty(t, llm.Calls())
}

func TestExecutor_UnknownTool(t *testing.T) {
	ctx := context.Background()
	llm := newScriptedModel(
		calls(llms.ToolCall{ID: "x1", Name: "nonexistent", Input: map[string]any{}}),
		text("sorry"),
	)
	cb := newRecorder()
	e := newExecutor(t, llm, assistants.WithCallback(cb))

	res, err := e.Execute(ctx, nil, "do it", tools.MustRegistry(echoTool()), 3)
	require.NoError(t, err)
	assert.Equal(t, "sorry", res.Message.GetContent())

	results := res.State.History[2].ToolCallResponses()
	require.Len(t, results, 1)
	assert.Equal(t, llms.ToolCallResponse{
		ToolCallID: "x1",
		Name:       "nonexistent",
		Content:    "unknown tool",
		IsError:    true,
	}, results[0])
	assert.Equal(t, []string{"nonexistent"}, cb.notFound)
	assert.Equal(t, 0, cb.Count("tool_start"))
}

func TestExecutor_MultipleCallsInOrder(t *testing.T) {
	ctx := context.Background()

	// both tools must run at the same time to complete
	var started sync.WaitGroup
	started.Add(2)
	barrier := func(name string) *funcTool {
		return newTool(name, func(ctx context.Context, input map[string]any) (any, error) {
			started.Done()
			done := make(chan struct{})
			go func() {
				started.Wait()
				close(done)
			}()
			select {
			case <-done:
				return name + ":" + fmt.Sprint(input["n"]), nil
			case <-time.After(5 * time.Second):
				return nil, errors.New("not concurrent")
			}
		})
	}

	llm := newScriptedModel(
		calls(
			llms.ToolCall{ID: "a", Name: "first", Input: map[string]any{"n": 1}},
			llms.ToolCall{ID: "b", Name: "second", Input: map[string]any{"n": 2}},
		),
		text("both done"),
	)
	e := newExecutor(t, llm)
	res, err := e.Execute(ctx, nil, "run both", tools.MustRegistry(barrier("first"), barrier("second")), 2)
	require.NoError(t, err)

	results := res.State.History[2].ToolCallResponses()
	assert.Equal(t, []llms.ToolCallResponse{
		{ToolCallID: "a", Name: "first", Content: "first:1"},
		{ToolCallID: "b", Name: "second", Content: "second:2"},
	}, results)
	assert.Equal(t, 1, res.State.RecursionCount)
}

func TestExecutor_SequentialDispatch(t *testing.T) {
	ctx := context.Background()

	var lock sync.Mutex
	var order []string
	record := func(name string) *funcTool {
		return newTool(name, func(context.Context, map[string]any) (any, error) {
			lock.Lock()
			defer lock.Unlock()
			order = append(order, name)
			return "ok", nil
		})
	}

	llm := newScriptedModel(
		calls(
			llms.ToolCall{ID: "1", Name: "c"},
			llms.ToolCall{ID: "2", Name: "a"},
			llms.ToolCall{ID: "3", Name: "b"},
		),
		text("done"),
	)
	e := newExecutor(t, llm, assistants.WithSequentialDispatch())
	_, err := e.Run(ctx, "go", tools.MustRegistry(record("a"), record("b"), record("c")), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestExecutor_FailingToolThenSuccess(t *testing.T) {
	ctx := context.Background()
	broken := failingTool()
	llm := newScriptedModel(
		calls(llms.ToolCall{ID: "1", Name: "broken"}),
		calls(llms.ToolCall{ID: "2", Name: "broken"}),
		calls(llms.ToolCall{ID: "3", Name: "broken"}),
		text("gave up on the tool"),
	)
	cb := newRecorder()
	e := newExecutor(t, llm, assistants.WithCallback(cb))

	res, err := e.Execute(ctx, nil, "try", tools.MustRegistry(broken), 5)
	require.NoError(t, err)
	assert.Equal(t, "gave up on the tool", res.Message.GetContent())
	assert.Equal(t, 3, res.State.RecursionCount)
	assert.Equal(t, 3, broken.Count())
	assert.Equal(t, 3, cb.Count("tool_error"))
	assert.Equal(t, 0, cb.Count("tool_end"))
	assert.Len(t, llm.Calls(), 4)

	for _, i := range []int{2, 4, 6} {
		r := res.State.History[i].ToolCallResponses()
		require.Len(t, r, 1)
		assert.True(t, r[0].IsError)
		assert.Equal(t, "service unavailable", r[0].Content)
	}
}

func TestExecutor_ToolCallIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("provider_ids", func(t *testing.T) {
		llm := newScriptedModel(
			calls(
				llms.ToolCall{ID: "toolu_01A", Name: "echo", Input: map[string]any{"text": "1"}},
				llms.ToolCall{ID: "toolu_01B", Name: "echo", Input: map[string]any{"text": "2"}},
			),
			text("ok"),
		)
		res, err := newExecutor(t, llm).Execute(ctx, nil, "ids", tools.MustRegistry(echoTool()), 1)
		require.NoError(t, err)
		r := res.State.History[2].ToolCallResponses()
		require.Len(t, r, 2)
		assert.Equal(t, "toolu_01A", r[0].ToolCallID)
		assert.Equal(t, "1", r[0].Content)
		assert.Equal(t, "toolu_01B", r[1].ToolCallID)
		assert.Equal(t, "2", r[1].Content)
	})

	t.Run("assigned_ids", func(t *testing.T) {
		llm := newScriptedModel(
			reply(llms.MessageFromParts(llms.RoleAI,
				llms.TextPart("calling"),
				llms.ToolCall{Name: "echo", Input: map[string]any{"text": "1"}},
				llms.ToolCall{Name: "echo", Input: map[string]any{"text": "2"}},
			)),
			text("ok"),
		)
		res, err := newExecutor(t, llm).Execute(ctx, nil, "ids", tools.MustRegistry(echoTool()), 1)
		require.NoError(t, err)
		tc := res.State.History[1].ToolCalls()
		require.Len(t, tc, 2)
		assert.Equal(t, "echo_1", tc[0].ID)
		assert.Equal(t, "echo_2", tc[1].ID)
		r := res.State.History[2].ToolCallResponses()
		assert.Equal(t, "echo_1", r[0].ToolCallID)
		assert.Equal(t, "echo_2", r[1].ToolCallID)
	})

	t.Run("assigned_id_taken", func(t *testing.T) {
		llm := newScriptedModel(
			calls(
				llms.ToolCall{Name: "echo", Input: map[string]any{"text": "1"}},
				llms.ToolCall{ID: "echo_0", Name: "echo", Input: map[string]any{"text": "2"}},
			),
			text("ok"),
		)
		res, err := newExecutor(t, llm).Execute(ctx, nil, "ids", tools.MustRegistry(echoTool()), 1)
		require.NoError(t, err)
		tc := res.State.History[1].ToolCalls()
		require.Len(t, tc, 2)
		assert.Equal(t, "echo_0_1", tc[0].ID)
		assert.Equal(t, "echo_0", tc[1].ID)
		r := res.State.History[2].ToolCallResponses()
		require.Len(t, r, 2)
		assert.Equal(t, "echo_0_1", r[0].ToolCallID)
		assert.Equal(t, "1", r[0].Content)
		assert.Equal(t, "echo_0", r[1].ToolCallID)
		assert.Equal(t, "2", r[1].Content)
	})

	t.Run("repeated_ids", func(t *testing.T) {
		llm := newScriptedModel(
			calls(
				llms.ToolCall{ID: "call_1", Name: "echo", Input: map[string]any{"text": "1"}},
				llms.ToolCall{ID: "call_1", Name: "echo", Input: map[string]any{"text": "2"}},
				llms.ToolCall{ID: "", Name: "echo", Input: map[string]any{"text": "3"}},
			),
			text("ok"),
		)
		res, err := newExecutor(t, llm).Execute(ctx, nil, "ids", tools.MustRegistry(echoTool()), 1)
		require.NoError(t, err)

		sent := llm.Calls()[1]
		ids := map[string]bool{}
		for _, m := range sent {
			for _, c := range m.ToolCalls() {
				assert.False(t, ids[c.ID], "duplicate tool call id %s", c.ID)
				ids[c.ID] = true
			}
		}
		assert.Len(t, ids, 3)

		r := res.State.History[2].ToolCallResponses()
		require.Len(t, r, 3)
		assert.Equal(t, "call_1", r[0].ToolCallID)
		assert.Equal(t, "echo_1", r[1].ToolCallID)
		assert.Equal(t, "2", r[1].Content)
		assert.Equal(t, "echo_2", r[2].ToolCallID)
	})
}

func TestExecutor_ToolValues(t *testing.T) {
	ctx := context.Background()
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	values := newTool("values", func(_ context.Context, input map[string]any) (any, error) {
		switch input["kind"] {
		case "struct":
			return point{X: 1, Y: 2}, nil
		case "bytes":
			return []byte("raw"), nil
		case "nil":
			return nil, nil
		}
		return 7, nil
	})
	llm := newScriptedModel(
		calls(
			llms.ToolCall{ID: "1", Name: "values", Input: map[string]any{"kind": "struct"}},
			llms.ToolCall{ID: "2", Name: "values", Input: map[string]any{"kind": "bytes"}},
			llms.ToolCall{ID: "3", Name: "values", Input: map[string]any{"kind": "nil"}},
			llms.ToolCall{ID: "4", Name: "values"},
		),
		text("ok"),
	)
	res, err := newExecutor(t, llm).Execute(ctx, nil, "values", tools.MustRegistry(values), 1)
	require.NoError(t, err)

	r := res.State.History[2].ToolCallResponses()
	require.Len(t, r, 4)
	assert.Equal(t, `{"x":1,"y":2}`, r[0].Content)
	assert.Equal(t, "raw", r[1].Content)
	assert.Equal(t, "", r[2].Content)
	assert.Equal(t, "7", r[3].Content)
}

func TestExecutor_ToolPanic(t *testing.T) {
	ctx := context.Background()
	panicky := newTool("panicky", func(context.Context, map[string]any) (any, error) {
		panic("boom")
	})
	llm := newScriptedModel(
		calls(
			llms.ToolCall{ID: "1", Name: "panicky"},
			llms.ToolCall{ID: "2", Name: "echo", Input: map[string]any{"text": "fine"}},
		),
		text("recovered"),
	)
	res, err := newExecutor(t, llm).Execute(ctx, nil, "panic", tools.MustRegistry(panicky, echoTool()), 1)
	require.NoError(t, err)

	r := res.State.History[2].ToolCallResponses()
	require.Len(t, r, 2)
	assert.True(t, r[0].IsError)
	assert.Equal(t, "tool panicky panicked: boom", r[0].Content)
	assert.False(t, r[1].IsError)
	assert.Equal(t, "fine", r[1].Content)
}

func TestExecutor_MalformedResponse(t *testing.T) {
	ctx := context.Background()
	cb := newRecorder()

	llm := newScriptedModel(reply(llms.Message{Role: llms.RoleAI}))
	_, err := newExecutor(t, llm, assistants.WithName("empty"), assistants.WithCallback(cb)).
		Run(ctx, "hi", tools.MustRegistry(), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, assistants.ErrMalformedResponse))
	assert.EqualError(t, err, "agent empty: no content: malformed response")
	assert.Equal(t, 1, cb.Count("loop_error"))

	llm = newScriptedModel(func(context.Context, []llms.Message) (*llms.ContentResponse, error) {
		return nil, nil
	})
	_, err = newExecutor(t, llm).Run(ctx, "hi", tools.MustRegistry(), 3)
	assert.True(t, errors.Is(err, assistants.ErrMalformedResponse))
}

func TestExecutor_TransportError(t *testing.T) {
	ctx := context.Background()
	errRateLimited := errors.New("rate limited")

	llm := newScriptedModel(
		calls(llms.ToolCall{ID: "1", Name: "echo", Input: map[string]any{"text": "x"}}),
		fail(errRateLimited),
	)
	_, err := newExecutor(t, llm, assistants.WithName("net")).Run(ctx, "hi", tools.MustRegistry(echoTool()), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRateLimited))
	assert.False(t, assistants.IsCancelled(err))
	assert.EqualError(t, err, "agent net: failed to generate content: rate limited")
}

func TestExecutor_Cancelled(t *testing.T) {
	t.Run("before_start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		llm := newScriptedModel(text("never"))
		_, err := newExecutor(t, llm).Run(ctx, "hi", tools.MustRegistry(), 3)
		require.Error(t, err)
		assert.True(t, assistants.IsCancelled(err))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Empty(t, llm.Calls())
	})

	t.Run("during_dispatch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		slow := newTool("slow", func(ctx context.Context, _ map[string]any) (any, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		})
		llm := newScriptedModel(
			calls(llms.ToolCall{ID: "1", Name: "slow"}),
			text("never"),
		)
		_, err := newExecutor(t, llm).Run(ctx, "hi", tools.MustRegistry(slow), 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, assistants.ErrCancelled))
		assert.Len(t, llm.Calls(), 1)
	})

	t.Run("during_generate", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		llm := newScriptedModel(func(ctx context.Context, _ []llms.Message) (*llms.ContentResponse, error) {
			cancel()
			return nil, errors.Wrap(ctx.Err(), "http request")
		})
		_, err := newExecutor(t, llm).Run(ctx, "hi", tools.MustRegistry(), 3)
		assert.True(t, assistants.IsCancelled(err))
	})
}

func TestExecutor_PriorHistory(t *testing.T) {
	ctx := context.Background()
	prior := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "my name is Bob"),
		llms.MessageFromTextParts(llms.RoleAI, "Hi Bob"),
	}
	llm := newScriptedModel(text("Bob"))
	res, err := newExecutor(t, llm).Execute(ctx, prior, "what is my name?", tools.MustRegistry(), 1)
	require.NoError(t, err)
	assert.Len(t, res.State.History, 4)

	calls := llm.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 3)
	assert.Equal(t, "what is my name?", calls[0][2].GetContent())
	assert.Len(t, prior, 2)
}

func TestExecutor_SharedRegistry(t *testing.T) {
	ctx := context.Background()
	echo := echoTool()
	reg := tools.MustRegistry(echo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := fmt.Sprintf("msg-%d", i)
			llm := newScriptedModel(
				calls(llms.ToolCall{ID: "1", Name: "echo", Input: map[string]any{"text": in}}),
				func(_ context.Context, messages []llms.Message) (*llms.ContentResponse, error) {
					r := messages[len(messages)-1].ToolCallResponses()
					return &llms.ContentResponse{
						Message: llms.MessageFromTextParts(llms.RoleAI, r[0].Content),
					}, nil
				},
			)
			msg, err := newExecutor(t, llm).Run(ctx, in, reg, 1)
			if assert.NoError(t, err) {
				assert.Equal(t, in, msg.GetContent())
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, echo.Count())
}

func TestExecutor_Mocks(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetName().Return("mock-model").AnyTimes()

	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return("lookup").AnyTimes()
	tool.EXPECT().Description().Return("looks up a value").AnyTimes()
	tool.EXPECT().Parameters().Return(nil).AnyTimes()

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				assert.Len(t, messages, 1)
				return &llms.ContentResponse{
					Message: llms.MessageFromParts(llms.RoleAI,
						llms.ToolCall{ID: "c1", Name: "lookup", Input: map[string]any{"key": "k1"}}),
				}, nil
			}),
		tool.EXPECT().Call(gomock.Any(), map[string]any{"key": "k1"}).Return("v1", nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, messages, 3)
				assert.Equal(t, []llms.ToolCallResponse{{ToolCallID: "c1", Name: "lookup", Content: "v1"}},
					messages[2].ToolCallResponses())
				return &llms.ContentResponse{
					Message: llms.MessageFromTextParts(llms.RoleAI, "k1 is v1"),
				}, nil
			}),
	)

	msg, err := newExecutor(t, llm).Run(ctx, "what is k1?", tools.MustRegistry(tool), 2)
	require.NoError(t, err)
	assert.Equal(t, "k1 is v1", msg.GetContent())
}
