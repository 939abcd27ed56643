package svc

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/relaydesk/relaydesk/pkg/config"
)

// LLMClient is the minimal subset of the OpenAI client used by the agent
// orchestrator; it is easy to mock in tests.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewLLMClient creates a completion client for the configured provider
func NewLLMClient(cfg config.LLMConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
