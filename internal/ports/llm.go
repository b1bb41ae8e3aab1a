package ports

import (
	"context"

	"promptstudio/internal/domain"
	"promptstudio/internal/llm"
)

// LLMCaller abstracts the chat-completion adapter used by the execution
// service for outgoing model requests.
type LLMCaller interface {
	Call(ctx context.Context, prompt, systemPrompt string, cfg llm.CallConfig) (domain.LLMResponse, error)
}
