// Package pipeline runs the drawing-to-image chain:
//
//	crop -> encode -> tag -> prompt -> image reference
//
// Tagging is best effort and falls back to a fixed tag set. Prompt synthesis
// is required; when it fails no image reference is produced. Stages run
// strictly in order and are never retried.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/imagegen"
	"github.com/ironsheep/sketchpad/internal/prompt"
	"github.com/ironsheep/sketchpad/internal/tagging"
)

// ErrPromptSynthesis wraps every failure of the prompt stage.
var ErrPromptSynthesis = errors.New("prompt synthesis failed")

// Result is what a successful run produces.
type Result struct {
	Tags              []string `json:"tags"`
	EnhancedPrompt    string   `json:"enhancedPrompt"`
	GeneratedImageRef string   `json:"generatedImage"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Seed              int64    `json:"seed"`

	// TagsFromService is false when the fallback tags were used.
	TagsFromService bool `json:"tagsFromService"`
}

// Pipeline wires the stage clients together. It holds no per-run state and
// is safe for concurrent use.
type Pipeline struct {
	tagger  tagging.Tagger
	synth   prompt.Synthesizer
	images  *imagegen.Builder
	maxTags int
	logger  *slog.Logger
}

// New creates a pipeline. A nil builder uses imagegen.NewBuilder.
func New(tagger tagging.Tagger, synth prompt.Synthesizer, images *imagegen.Builder, logger *slog.Logger) *Pipeline {
	if images == nil {
		images = imagegen.NewBuilder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		tagger:  tagger,
		synth:   synth,
		images:  images,
		maxTags: tagging.MaxTags,
		logger:  logger,
	}
}

// Generate crops box out of src and runs the full chain on the region.
func (p *Pipeline) Generate(ctx context.Context, src image.Image, box canvas.BoundingBox) (*Result, error) {
	region, err := p.crop(src, box)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, region)
}

// GenerateFromImage runs the full chain on an uploaded image without
// cropping it.
func (p *Pipeline) GenerateFromImage(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", canvas.ErrInvalidImageData)
	}
	return p.run(ctx, img)
}

// Refine crops box out of src and builds a reference that asks the image
// service to clean the drawing up. No tagging or language model call is made.
func (p *Pipeline) Refine(ctx context.Context, src image.Image, box canvas.BoundingBox) (*Result, error) {
	if _, err := p.crop(src, box); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref := p.images.Build(imagegen.RefinePrompt, box.Width(), box.Height())
	return &Result{
		Tags:              []string{},
		EnhancedPrompt:    imagegen.RefinePrompt,
		GeneratedImageRef: ref.URL,
		Width:             ref.Width,
		Height:            ref.Height,
		Seed:              ref.Seed,
	}, nil
}

func (p *Pipeline) crop(src image.Image, box canvas.BoundingBox) (image.Image, error) {
	start := time.Now()
	region, err := canvas.CropRegion(src, box)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("stage complete", "stage", "crop", "duration", time.Since(start), "box", box.String())
	return region, nil
}

func (p *Pipeline) run(ctx context.Context, region image.Image) (*Result, error) {
	start := time.Now()
	encoded, err := canvas.EncodeBase64PNG(region)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("stage complete", "stage", "encode", "duration", time.Since(start), "bytes", len(encoded.PNG))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	outcome := p.tagger.Tag(ctx, encoded)
	tags := tagging.Resolve(outcome, p.maxTags)
	if outcome.OK() {
		p.logger.Info("stage complete", "stage", "tag", "duration", time.Since(start), "tags", len(tags))
	} else {
		p.logger.Warn("tagging failed, using fallback tags", "stage", "tag", "duration", time.Since(start), "error", outcome.Err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	text, err := p.synth.Synthesize(ctx, tags)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = prompt.ErrEmptyPrompt
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.Error("prompt synthesis failed", "stage", "prompt", "duration", time.Since(start), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPromptSynthesis, err)
	}
	p.logger.Info("stage complete", "stage", "prompt", "duration", time.Since(start), "chars", len(text))

	ref := p.images.Build(text, encoded.Width, encoded.Height)
	p.logger.Info("stage complete", "stage", "image", "width", ref.Width, "height", ref.Height, "seed", ref.Seed)

	return &Result{
		Tags:              tags,
		EnhancedPrompt:    text,
		GeneratedImageRef: ref.URL,
		Width:             ref.Width,
		Height:            ref.Height,
		Seed:              ref.Seed,
		TagsFromService:   outcome.OK(),
	}, nil
}
