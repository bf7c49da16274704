package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

// contentGenerator is the part of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient synthesizes prompts with the Gemini API.
type GeminiClient struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a client backed by the genai SDK.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is not set")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiClient(client.Models, cfg.Model, logger), nil
}

func newGeminiClient(models contentGenerator, model string, logger *slog.Logger) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{models: models, model: model, logger: logger}
}

// Synthesize sends the instruction for tags and returns the trimmed reply.
func (c *GeminiClient) Synthesize(ctx context.Context, tags []string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(BuildInstruction(tags)), &genai.GenerateContentConfig{
		MaxOutputTokens: MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response has no candidates: %w", ErrEmptyPrompt)
	}

	c.logger.Debug("gemini completion", "model", c.model, "candidates", len(resp.Candidates))
	return clean(resp.Text())
}
