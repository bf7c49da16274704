// Package config loads sketchpad settings from an optional YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables. API credentials are normally supplied through the environment
// only.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/imagegen"
	"github.com/ironsheep/sketchpad/internal/prompt"
	"github.com/ironsheep/sketchpad/internal/tagging"
)

// Environment variables read by Load.
const (
	EnvListen         = "SKETCHPAD_LISTEN"
	EnvLogLevel       = "SKETCHPAD_LOG_LEVEL"
	EnvPromptProvider = "SKETCHPAD_PROMPT_PROVIDER"
	EnvImaggaKey      = "IMAGGA_API_KEY"
	EnvImaggaSecret   = "IMAGGA_API_SECRET"
	EnvGroqKey        = "GROQ_API_KEY"
	EnvGeminiKey      = "GEMINI_API_KEY"
)

// Config is the full sketchpad configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// MaxBodyBytes limits request bodies on the HTTP endpoint.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	Canvas   CanvasConfig   `yaml:"canvas"`
	Tagging  TaggingConfig  `yaml:"tagging"`
	Prompt   PromptConfig   `yaml:"prompt"`
	ImageGen ImageGenConfig `yaml:"imagegen"`
}

// CanvasConfig holds drawing surface settings.
type CanvasConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	PenWidth     float64 `yaml:"pen_width"`
	PenColor     string  `yaml:"pen_color"`
	EraserScale  float64 `yaml:"eraser_scale"`
	Padding      int     `yaml:"padding"`
	OutlineColor string  `yaml:"outline_color"`
}

// TaggingConfig holds Imagga settings.
type TaggingConfig struct {
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PromptConfig selects and configures the prompt synthesizer.
type PromptConfig struct {
	Provider string       `yaml:"provider"`
	Groq     GroqConfig   `yaml:"groq"`
	Gemini   GeminiConfig `yaml:"gemini"`
}

// GroqConfig holds Groq settings.
type GroqConfig struct {
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GeminiConfig holds Gemini settings.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ImageGenConfig holds image service settings.
type ImageGenConfig struct {
	BaseURL      string `yaml:"base_url"`
	MaxDimension int    `yaml:"max_dimension"`
	NoLogo       *bool  `yaml:"nologo"`
}

// Default returns the built-in configuration.
func Default() *Config {
	noLogo := true
	return &Config{
		Listen:       ":8080",
		LogLevel:     "info",
		MaxBodyBytes: 10 << 20,
		Canvas: CanvasConfig{
			Width:        1024,
			Height:       768,
			PenWidth:     3,
			PenColor:     "#2c3e50",
			EraserScale:  3,
			Padding:      canvas.DefaultPadding,
			OutlineColor: "#e67e22",
		},
		Tagging: TaggingConfig{
			Endpoint: tagging.DefaultImaggaURL,
			Timeout:  tagging.DefaultTimeout,
		},
		Prompt: PromptConfig{
			Provider: prompt.ProviderGroq,
			Groq: GroqConfig{
				Model:    prompt.DefaultGroqModel,
				Endpoint: prompt.DefaultGroqURL,
				Timeout:  30 * time.Second,
			},
			Gemini: GeminiConfig{
				Model: prompt.DefaultGeminiModel,
			},
		},
		ImageGen: ImageGenConfig{
			BaseURL:      imagegen.DefaultBaseURL,
			MaxDimension: imagegen.DefaultMaxDimension,
			NoLogo:       &noLogo,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Listen, EnvListen)
	set(&c.LogLevel, EnvLogLevel)
	set(&c.Prompt.Provider, EnvPromptProvider)
	set(&c.Tagging.APIKey, EnvImaggaKey)
	set(&c.Tagging.APISecret, EnvImaggaSecret)
	set(&c.Prompt.Groq.APIKey, EnvGroqKey)
	set(&c.Prompt.Gemini.APIKey, EnvGeminiKey)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.PenWidth < canvas.MinPenWidth || c.Canvas.PenWidth > canvas.MaxPenWidth {
		return fmt.Errorf("pen_width must be between %d and %d, got %v", canvas.MinPenWidth, canvas.MaxPenWidth, c.Canvas.PenWidth)
	}
	if _, err := canvas.ParseColor(c.Canvas.PenColor); err != nil {
		return fmt.Errorf("pen_color: %w", err)
	}
	if _, err := canvas.ParseColor(c.Canvas.OutlineColor); err != nil {
		return fmt.Errorf("outline_color: %w", err)
	}
	if c.ImageGen.MaxDimension <= 0 {
		return errors.New("imagegen.max_dimension must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}
	switch strings.ToLower(c.Prompt.Provider) {
	case prompt.ProviderGroq, prompt.ProviderGemini:
	default:
		return fmt.Errorf("unknown prompt provider: %s", c.Prompt.Provider)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// CanvasOptions converts the canvas settings. Validate must have passed.
func (c *Config) CanvasOptions() canvas.Options {
	pen, _ := canvas.ParseColor(c.Canvas.PenColor)
	return canvas.Options{
		PenWidth:    c.Canvas.PenWidth,
		PenColor:    pen,
		EraserScale: c.Canvas.EraserScale,
		Padding:     c.Canvas.Padding,
	}
}

// OutlineColor returns the parsed bounding box preview color.
func (c *Config) OutlineColor() color.Color {
	col, err := canvas.ParseColor(c.Canvas.OutlineColor)
	if err != nil {
		return canvas.DefaultOutlineColor
	}
	return col
}

// Imagga converts the tagging settings.
func (c *Config) Imagga() tagging.ImaggaConfig {
	return tagging.ImaggaConfig{
		APIKey:    c.Tagging.APIKey,
		APISecret: c.Tagging.APISecret,
		Endpoint:  c.Tagging.Endpoint,
		Timeout:   c.Tagging.Timeout,
	}
}

// PromptConfig converts the synthesizer settings.
func (c *Config) PromptConfig() prompt.Config {
	return prompt.Config{
		Provider: strings.ToLower(c.Prompt.Provider),
		Groq: prompt.GroqConfig{
			APIKey:   c.Prompt.Groq.APIKey,
			Model:    c.Prompt.Groq.Model,
			Endpoint: c.Prompt.Groq.Endpoint,
			Timeout:  c.Prompt.Groq.Timeout,
		},
		Gemini: prompt.GeminiConfig{
			APIKey:  c.Prompt.Gemini.APIKey,
			Model:   c.Prompt.Gemini.Model,
			BaseURL: c.Prompt.Gemini.BaseURL,
		},
	}
}

// ImageBuilder converts the image service settings.
func (c *Config) ImageBuilder() *imagegen.Builder {
	b := imagegen.NewBuilder()
	if c.ImageGen.BaseURL != "" {
		b.BaseURL = c.ImageGen.BaseURL
	}
	b.MaxDimension = c.ImageGen.MaxDimension
	if c.ImageGen.NoLogo != nil {
		b.NoLogo = *c.ImageGen.NoLogo
	}
	return b
}

// ParseLogLevel maps debug, info, warn/warning and error to slog levels.
// A numeric level is accepted as is.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n), nil
	}
	return 0, fmt.Errorf("unknown log level: %s", s)
}
