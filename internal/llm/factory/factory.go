package factory

import (
	"fmt"

	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/llm"
	"github.com/fusorlabs/fusor/internal/llm/claude"
	"github.com/fusorlabs/fusor/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.SentimentConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
