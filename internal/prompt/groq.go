package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultGroqURL is Groq's OpenAI-compatible chat completions endpoint.
	DefaultGroqURL = "https://api.groq.com/openai/v1/chat/completions"

	// DefaultGroqModel is the model used when none is configured.
	DefaultGroqModel = "llama-3.3-70b-versatile"

	defaultGroqTimeout = 30 * time.Second
)

// GroqConfig configures a GroqClient.
type GroqConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration

	HTTPClient *http.Client
}

// GroqClient synthesizes prompts with Groq's chat completions API.
type GroqClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewGroqClient creates a client. An API key is required.
func NewGroqClient(cfg GroqConfig, logger *slog.Logger) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq API key is not set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &GroqClient{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: cfg.Endpoint,
		client:   cfg.HTTPClient,
		logger:   logger,
	}
	if c.model == "" {
		c.model = DefaultGroqModel
	}
	if c.endpoint == "" {
		c.endpoint = DefaultGroqURL
	}
	if c.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultGroqTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Synthesize sends the instruction for tags and returns the trimmed reply.
func (c *GroqClient) Synthesize(ctx context.Context, tags []string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: BuildInstruction(tags)}},
		MaxTokens: MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("groq request failed: status code: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode groq response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq response has no choices: %w", ErrEmptyPrompt)
	}

	c.logger.Debug("groq completion",
		"model", c.model,
		"prompt_tokens", parsed.Usage.PromptTokens,
		"completion_tokens", parsed.Usage.CompletionTokens)

	return clean(parsed.Choices[0].Message.Content)
}
