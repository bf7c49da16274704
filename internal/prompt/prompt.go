// Package prompt turns a drawing's tag set into a detailed text-to-image
// prompt using a hosted language model.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// MaxTokens caps the length of a synthesized prompt.
const MaxTokens = 200

// ErrEmptyPrompt is returned when the model answers with no usable text.
var ErrEmptyPrompt = errors.New("language model returned an empty prompt")

// Synthesizer writes an image-generation prompt from a set of tags.
type Synthesizer interface {
	Synthesize(ctx context.Context, tags []string) (string, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, tags []string) (string, error)

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, tags []string) (string, error) {
	return f(ctx, tags)
}

// BuildInstruction returns the instruction sent to the language model for
// the given tags.
func BuildInstruction(tags []string) string {
	var b strings.Builder
	b.WriteString("You are an expert at creating detailed image generation prompts.\n\n")
	b.WriteString("A user has drawn a sketch that has been analyzed with these tags: ")
	b.WriteString(strings.Join(tags, ", "))
	b.WriteString("\n\n")
	b.WriteString("Create a detailed, creative prompt for an AI image generator that will transform this sketch into a beautiful, polished artwork.\n")
	b.WriteString("The prompt should be descriptive, artistic, and specify style, lighting, and mood.\n\n")
	b.WriteString("Return ONLY the prompt text, nothing else.")
	return b.String()
}

// clean trims model output and strips a single pair of wrapping quotes.
func clean(text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		if (text[0] == '"' && text[len(text)-1] == '"') || (text[0] == '\'' && text[len(text)-1] == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	if text == "" {
		return "", ErrEmptyPrompt
	}
	return text, nil
}

// Provider names accepted by New.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Config selects and configures a Synthesizer.
type Config struct {
	Provider string

	Groq   GroqConfig
	Gemini GeminiConfig
}

// New builds the Synthesizer named by cfg.Provider. An empty provider
// selects Groq.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Synthesizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGroq:
		return NewGroqClient(cfg.Groq, logger)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown prompt provider: %s", cfg.Provider)
	}
}
