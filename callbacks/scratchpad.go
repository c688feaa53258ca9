package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/assistants"
	"github.com/effective-security/toolloop/chatmodel"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/toolloop/pkg/llmutils"
	"github.com/effective-security/toolloop/tools"
	"github.com/effective-security/x/slices"
)

var _ assistants.Callback = (*Scratchpad)(nil)

// TimeNowFn is used for the timestamps of the scratchpad entries
var TimeNowFn = time.Now

// RunStats are the counters of a run
type RunStats struct {
	ChatID string
	RunID  string

	Duration           time.Duration
	TotalMessages      uint32
	LLMBytesOut        uint64
	LLMInputTokens     uint64
	LLMOutputTokens    uint64
	LLMTotalTokens     uint64
	LLMCalls           uint32
	Loops              uint32
	LoopsSucceeded     uint32
	LoopsFailed        uint32
	Recursions         uint32
	ToolCalls          uint32
	ToolCallsSucceeded uint32
	ToolCallsFailed    uint32
	ToolNotFound       uint32
}

// Scratchpad records the events of the runs per chat,
// the run is identified by the chat context.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// StartRun starts recording of the chat from the context.
// The events of a context without chat context are ignored.
func (l *Scratchpad) StartRun(ctx context.Context) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	r := &run{
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
		chatCtx: chatCtx,
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[chatCtx.GetChatID()] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
}

// EndRun stops recording, and returns the stats and the scratchpad of the run.
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	r := l.getRun(ctx)
	if r == nil {
		return nil, nil
	}

	l.lock.Lock()
	delete(l.runs, r.chatCtx.GetChatID())
	l.lock.Unlock()

	stats := r.snapshot()
	stats.Duration = TimeNowFn().Sub(r.started)

	r.print(fmt.Sprintf("Loops: %d, Failed: %d, Recursions: %d",
		stats.Loops,
		stats.LoopsFailed,
		stats.Recursions,
	))
	r.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolCalls,
		stats.ToolCallsFailed,
		stats.ToolNotFound,
	))
	r.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))
	r.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	return &stats, r.bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatCtx.GetChatID()]
}

func (l *Scratchpad) OnLoopStart(ctx context.Context, agent string, input string) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.Loops, 1)
	r.print(agent, "*** Loop Start ***")
	r.print(agent, "Input:", input)
}

func (l *Scratchpad) OnLoopEnd(ctx context.Context, agent string, _ string, res *assistants.Result) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.LoopsSucceeded, 1)
	if l.mode == ModeVerbose {
		r.print(agent, "Output:", res.Message.GetContent())
		r.print(agent, printMessages(res.State.History))
	}
	r.print(agent, "*** Loop End ***")
}

func (l *Scratchpad) OnLoopError(ctx context.Context, agent string, _ string, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.LoopsFailed, 1)
	r.print(agent, "*** Error ***", err.Error())

	var rerr *assistants.RecursionLimitError
	if l.mode == ModeVerbose && errors.As(err, &rerr) {
		r.print(agent, printMessages(rerr.History))
	}
}

func (l *Scratchpad) OnLLMCallStart(ctx context.Context, agent string, llm llms.Model, messages []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	count := uint32(len(messages))
	atomic.AddUint64(&r.stats.LLMBytesOut, llmutils.CountMessagesContentSize(messages))
	atomic.AddUint32(&r.stats.LLMCalls, 1)
	atomic.AddUint32(&r.stats.TotalMessages, count)

	r.print(agent, "*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose {
		r.print(agent, printMessages(messages))
	}
}

func (l *Scratchpad) OnLLMCallEnd(ctx context.Context, agent string, llm llms.Model, resp *llms.ContentResponse) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	u := resp.Usage
	atomic.AddUint64(&r.stats.LLMInputTokens, uint64(u.InputTokens))
	atomic.AddUint64(&r.stats.LLMOutputTokens, uint64(u.OutputTokens))
	atomic.AddUint64(&r.stats.LLMTotalTokens, uint64(u.TotalTokens))

	r.print(agent, "*** LLM Call End ***",
		fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d total tokens, %d tool calls",
			llm.GetName(), u.InputTokens, u.OutputTokens, u.TotalTokens, len(resp.Message.ToolCalls())))
}

func (l *Scratchpad) OnRecursion(ctx context.Context, agent string, count int) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.Recursions, 1)
	r.print(agent, "*** Recursion ***", fmt.Sprint(count))
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolCalls, 1)
	r.print(agent, tool.Name(), call.ID, "*** Tool Start ***")
	r.print(agent, tool.Name(), call.ID, "Input:", llmutils.ToJSON(call.Input))
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, resp llms.ToolCallResponse) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		r.print(agent, tool.Name(), call.ID, "Output:", slices.StringUpto(resp.Content, 1024))
	}
	r.print(agent, tool.Name(), call.ID, "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.ITool, agent string, call llms.ToolCall, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolCallsFailed, 1)
	r.print(agent, tool.Name(), call.ID, "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, agent string, call llms.ToolCall) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolNotFound, 1)
	r.print(agent, "*** Tool Not Found ***", call.Name, call.ID)
}

func printMessages(messages []llms.Message) string {
	var buf strings.Builder
	buf.WriteString("Messages:\n")
	for idx, msg := range messages {
		fmt.Fprintf(&buf, "[%d] %s:\n", idx, msg.Role)
		textParts := 0
		toolParts := 0
		toolResponseParts := 0
		for _, part := range msg.Parts {
			switch typ := part.(type) {
			case llms.TextContent:
				textParts++
			case llms.ToolCall:
				toolParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			case llms.ToolCallResponse:
				toolResponseParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			}
		}
		fmt.Fprintf(&buf, "  - %d texts, %d tool calls, %d tool responses\n", textParts, toolParts, toolResponseParts)
	}
	return buf.String()
}

type run struct {
	chatCtx chatmodel.ChatContext
	started time.Time
	stats   RunStats

	lock sync.Mutex
	w    bytes.Buffer
}

func (r *run) snapshot() RunStats {
	s := RunStats{
		ChatID: r.stats.ChatID,
		RunID:  r.stats.RunID,
	}
	s.TotalMessages = atomic.LoadUint32(&r.stats.TotalMessages)
	s.LLMBytesOut = atomic.LoadUint64(&r.stats.LLMBytesOut)
	s.LLMInputTokens = atomic.LoadUint64(&r.stats.LLMInputTokens)
	s.LLMOutputTokens = atomic.LoadUint64(&r.stats.LLMOutputTokens)
	s.LLMTotalTokens = atomic.LoadUint64(&r.stats.LLMTotalTokens)
	s.LLMCalls = atomic.LoadUint32(&r.stats.LLMCalls)
	s.Loops = atomic.LoadUint32(&r.stats.Loops)
	s.LoopsSucceeded = atomic.LoadUint32(&r.stats.LoopsSucceeded)
	s.LoopsFailed = atomic.LoadUint32(&r.stats.LoopsFailed)
	s.Recursions = atomic.LoadUint32(&r.stats.Recursions)
	s.ToolCalls = atomic.LoadUint32(&r.stats.ToolCalls)
	s.ToolCallsSucceeded = atomic.LoadUint32(&r.stats.ToolCallsSucceeded)
	s.ToolCallsFailed = atomic.LoadUint32(&r.stats.ToolCallsFailed)
	s.ToolNotFound = atomic.LoadUint32(&r.stats.ToolNotFound)
	return s
}

func (r *run) bytes() []byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]byte(nil), r.w.Bytes()...)
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID.runID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatCtx.GetChatID())
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(r.chatCtx.RunID())
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
