// Package llmfactory creates LLM models from configuration, supporting multiple providers
// (OpenAI, Azure, Anthropic, Bedrock, Google AI, Perplexity) and per-agent model selection.
package llmfactory
