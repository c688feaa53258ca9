package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsAssistantCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_assistant_calls_failed",
		Help:         "stats_assistant_calls_failed provides total assistant calls failed",
		RequiredTags: []string{"agent"},
	}

	StatsAssistantCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_assistant_calls_succeeded",
		Help:         "stats_assistant_calls_succeeded provides total assistant calls succeeded",
		RequiredTags: []string{"agent"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLoopCancelled = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_loop_cancelled",
		Help:         "stats_loop_cancelled provides total runs cancelled by the caller",
		RequiredTags: []string{"agent"},
	}

	StatsLoopFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_loop_failed",
		Help:         "stats_loop_failed provides total runs failed with transport errors",
		RequiredTags: []string{"agent"},
	}

	StatsLoopMalformedResponses = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_loop_malformed_responses",
		Help:         "stats_loop_malformed_responses provides total runs failed with malformed LLM response",
		RequiredTags: []string{"agent"},
	}

	StatsLoopRecursionLimitExceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_loop_recursion_limit_exceeded",
		Help:         "stats_loop_recursion_limit_exceeded provides total runs failed with recursion limit exceeded",
		RequiredTags: []string{"agent"},
	}

	StatsLoopRecursions = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_loop_recursions",
		Help:         "stats_loop_recursions provides total tool dispatch rounds",
		RequiredTags: []string{"agent"},
	}

	StatsLoopSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_loop_succeeded",
		Help:         "stats_loop_succeeded provides total runs completed with final answer",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsPanicked = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_panicked",
		Help:         "stats_tool_calls_panicked provides total tool calls panicked",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfAssistantCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_assistant_call",
		Help:         "perf_assistant_call provides duration of assistant call",
		RequiredTags: []string{"agent"},
	}

	PerfAssistantRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_assistant_run",
		Help:         "perf_assistant_run provides duration of tool loop run",
		RequiredTags: []string{"agent"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of LLM call",
		RequiredTags: []string{"agent", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfAssistantCall,
	&PerfAssistantRun,
	&PerfLLMCall,
	&PerfToolCall,
	&StatsAssistantCallsFailed,
	&StatsAssistantCallsSucceeded,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsLoopCancelled,
	&StatsLoopFailed,
	&StatsLoopMalformedResponses,
	&StatsLoopRecursionLimitExceeded,
	&StatsLoopRecursions,
	&StatsLoopSucceeded,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsPanicked,
	&StatsToolCallsSucceeded,
}
