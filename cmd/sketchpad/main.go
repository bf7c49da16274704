package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/gg"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/config"
	"github.com/ironsheep/sketchpad/internal/httpapi"
	"github.com/ironsheep/sketchpad/internal/pipeline"
	"github.com/ironsheep/sketchpad/internal/prompt"
	"github.com/ironsheep/sketchpad/internal/server"
	"github.com/ironsheep/sketchpad/internal/studio"
	"github.com/ironsheep/sketchpad/internal/tagging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `sketchpad - turn sketches into generated images

Usage:
  sketchpad [mcp] [options]     Run the MCP server on stdin/stdout (default)
  sketchpad serve [options]     Run the HTTP endpoint
  sketchpad generate [options] FILE
                                Generate an image from a drawing on disk
  sketchpad --version           Print version information

Options:
  --config FILE    YAML configuration file
  --addr ADDR      Listen address for serve (overrides config)
  --log-level LVL  debug, info, warn or error

Environment:
  IMAGGA_API_KEY, IMAGGA_API_SECRET   Image tagging credentials
  GROQ_API_KEY                        Prompt synthesis (groq provider)
  GEMINI_API_KEY                      Prompt synthesis (gemini provider)
  SKETCHPAD_PROMPT_PROVIDER           groq or gemini
  SKETCHPAD_LISTEN                    Listen address for serve
  SKETCHPAD_LOG_LEVEL                 Log level

Logs go to stderr; in mcp mode stdout carries the protocol.
`)
}

func main() {
	args := os.Args[1:]
	command := "mcp"
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("sketchpad %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "mcp", "serve", "generate":
			command = args[0]
			args = args[1:]
		}
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	fs.Usage = usage
	configPath := fs.String("config", "", "YAML configuration file")
	addr := fs.String("addr", "", "Listen address for serve")
	logLevel := fs.String("log-level", "", "Log level")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))

	logger.Debug("sketchpad starting", "version", Version, "built", BuildTime, "commit", GitCommit, "command", command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPipeline(ctx, cfg, logger)

	switch command {
	case "serve":
		err = runHTTP(ctx, cfg, p, logger)
	case "generate":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Error: generate needs exactly one image file")
			usage()
			os.Exit(2)
		}
		err = runGenerate(ctx, fs.Arg(0), p)
	default:
		err = runMCP(ctx, cfg, p, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

// newPipeline wires the tagger, synthesizer and image builder. A
// synthesizer that cannot be built fails every generation instead of
// stopping the process.
func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	tagger := tagging.NewImaggaClient(cfg.Imagga(), logger.With("component", "tagging"))
	if cfg.Tagging.APIKey == "" || cfg.Tagging.APISecret == "" {
		logger.Warn("tagging credentials not set; fallback tags will be used")
	}

	synth, err := prompt.New(ctx, cfg.PromptConfig(), logger.With("component", "prompt"))
	if err != nil {
		logger.Warn("prompt synthesizer unavailable", "provider", cfg.Prompt.Provider, "error", err)
		synth = prompt.SynthesizerFunc(func(context.Context, []string) (string, error) {
			return "", err
		})
	}

	return pipeline.New(tagger, synth, cfg.ImageBuilder(), logger.With("component", "pipeline"))
}

func runMCP(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	surface, err := canvas.NewSurface(cfg.Canvas.Width, cfg.Canvas.Height, cfg.CanvasOptions())
	if err != nil {
		return fmt.Errorf("failed to create canvas: %w", err)
	}

	st := studio.New(surface, p, logger.With("component", "studio"))
	st.OutlineColor = cfg.OutlineColor()
	defer st.Close()

	srv := server.New(st, Version, logger.With("component", "mcp"))
	return srv.Run(ctx, os.Stdin, os.Stdout)
}

func runHTTP(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	h := httpapi.NewHandler(p, logger.With("component", "http"))
	h.SetMaxBodyBytes(cfg.MaxBodyBytes)
	return httpapi.ListenAndServe(ctx, cfg.Listen, h, logger)
}

func runGenerate(ctx context.Context, path string, p *pipeline.Pipeline) error {
	img, _, err := canvas.LoadFile(path)
	if err != nil {
		return err
	}
	res, err := p.GenerateFromImage(ctx, img)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
