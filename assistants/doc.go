// Package assistants provides the bounded tool loop for LLM agents: the
// executor that alternates model calls and tool dispatch until the model
// answers, the agent wrapper that adds system prompt and message history,
// and an orchestrator that hands a request to exactly one agent.
package assistants
