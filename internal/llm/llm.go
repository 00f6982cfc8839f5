// Package llm provides the opaque text-in/text-out collaborator boundary
// debate role handlers call through (spec §4.9, DOMAIN STACK). It is
// deliberately thin: prompt engineering, retries, and ingestion are
// Non-goals (spec.md "opaque LLM invocation semantics"); this package only
// wraps a chat-completion call, grounded on the teacher's OpenAI node
// executor (internal/application/executor/node_executors.go).
package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Collaborator is the opaque boundary debate role handlers are built over.
// No caller in internal/debate or internal/claims depends on this package
// directly — a RoleHandler closes over a Collaborator at composition time.
type Collaborator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIAdapter wraps go-openai's chat-completion client as a Collaborator.
type OpenAIAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIAdapter builds an adapter. model is required; maxTokens <= 0
// means "let the API apply its default".
func NewOpenAIAdapter(apiKey, model string, temperature float32, maxTokens int) *OpenAIAdapter {
	return &OpenAIAdapter{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (a *OpenAIAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:               a.model,
		MaxCompletionTokens: a.maxTokens,
		Temperature:         a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
