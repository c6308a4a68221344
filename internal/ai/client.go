package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/robalyx/imagegate/internal/setup/config"
	"google.golang.org/api/option"
)

// NewGenAIClient creates a Gemini client from the LLM settings.
func NewGenAIClient(ctx context.Context, cfg *config.LLM, opts ...option.ClientOption) (*genai.Client, error) {
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}
