package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqProvider creates a provider for the Groq API. Groq exposes an
// OpenAI-compatible surface, so it reuses the OpenAI client pointed at
// Groq's base URL.
func NewGroqProvider(apiKey string, model string) *GroqProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL
	return &GroqProvider{
		OpenAIProvider: OpenAIProvider{
			client: openai.NewClientWithConfig(cfg),
			model:  model,
		},
	}
}

// GroqProvider implements Provider against the Groq chat API.
type GroqProvider struct {
	OpenAIProvider
}

func (p *GroqProvider) Name() string {
	return "groq"
}
