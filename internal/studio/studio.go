// Package studio owns an interactive drawing session: one canvas surface,
// the generation pipeline behind it, and the listeners that follow it.
//
// At most one generation is in flight per studio. Starting a new one cancels
// the previous request. A result is kept only if the drawing it was computed
// from is still the current drawing when it arrives; a new stroke, Clear or
// Resize in the meantime makes it stale.
package studio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/pipeline"
)

var (
	// ErrNothingDrawn is returned by Generate when the surface has no
	// bounding box.
	ErrNothingDrawn = errors.New("nothing drawn")

	// ErrStale is returned when the drawing changed while a generation was
	// running. The result is discarded.
	ErrStale = errors.New("drawing changed during generation")

	// ErrSuperseded is returned when a newer Generate call cancelled this one.
	ErrSuperseded = errors.New("generation superseded by a newer request")

	// ErrClosed is returned after Close, and by a generation that Close
	// interrupted.
	ErrClosed = errors.New("studio closed")

	// ErrStrokeInProgress is returned by Generate between BeginStroke and
	// EndStroke.
	ErrStrokeInProgress = errors.New("stroke in progress")
)

// FailureMessage is the error text published to subscribers when a
// generation fails. The cause is only logged.
const FailureMessage = "failed to generate image"

// Mode selects how Generate turns the drawing into a prompt.
type Mode string

const (
	// ModeEnhance tags the drawing and has a language model write the prompt.
	ModeEnhance Mode = "enhance"

	// ModeRefine uses a fixed clean-up prompt and makes no remote calls.
	ModeRefine Mode = "refine"
)

// Generator is the part of the pipeline a studio drives.
type Generator interface {
	Generate(ctx context.Context, src image.Image, box canvas.BoundingBox) (*pipeline.Result, error)
	Refine(ctx context.Context, src image.Image, box canvas.BoundingBox) (*pipeline.Result, error)
}

// Studio is a drawing session. All methods are safe for concurrent use.
type Studio struct {
	surface *canvas.Surface
	gen     Generator
	logger  *slog.Logger

	// OutlineColor is the color of the bounding box preview.
	OutlineColor color.Color

	mu        sync.Mutex
	generated *pipeline.Result
	cancel    context.CancelFunc
	genSeq    uint64
	subs      map[uint64]func(Event)
	nextSub   uint64
	closed    bool
}

// New creates a studio that owns surface. Close releases it.
func New(surface *canvas.Surface, gen Generator, logger *slog.Logger) *Studio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Studio{
		surface: surface,
		gen:     gen,
		logger:  logger,
		subs:    make(map[uint64]func(Event)),
	}
}

// Surface returns the underlying canvas surface.
func (s *Studio) Surface() *canvas.Surface {
	return s.surface
}

// BeginStroke starts a stroke at p.
func (s *Studio) BeginStroke(p canvas.Point) {
	s.surface.BeginStroke(p)
}

// ExtendStroke continues the current stroke to p.
func (s *Studio) ExtendStroke(p canvas.Point) error {
	return s.surface.ExtendStroke(p)
}

// EndStroke finishes the stroke and publishes the new bounding box.
func (s *Studio) EndStroke() *canvas.BoundingBox {
	box := s.surface.EndStroke()
	s.publish(Event{Type: EventBoundingBox, BoundingBox: box})
	return box
}

// Stroke draws a complete stroke through pts.
func (s *Studio) Stroke(pts []canvas.Point) (*canvas.BoundingBox, error) {
	if len(pts) == 0 {
		return s.surface.BoundingBox(), nil
	}
	s.surface.BeginStroke(pts[0])
	for _, p := range pts[1:] {
		if err := s.surface.ExtendStroke(p); err != nil {
			s.EndStroke()
			return nil, err
		}
	}
	return s.EndStroke(), nil
}

// SetTool selects the pen or eraser.
func (s *Studio) SetTool(t canvas.Tool) {
	s.surface.SetTool(t)
}

// SetPenWidth sets the pen width; the eraser scales with it.
func (s *Studio) SetPenWidth(width float64) {
	s.surface.SetPenWidth(width)
}

// BoundingBox returns the current bounding box, or nil.
func (s *Studio) BoundingBox() *canvas.BoundingBox {
	return s.surface.BoundingBox()
}

// Clear erases the drawing and drops the bounding box and generated image
// together. Any running generation is cancelled.
func (s *Studio) Clear() {
	s.surface.Clear()
	s.reset()
	s.publish(Event{Type: EventCleared})
}

// Resize reallocates the surface. The drawing is discarded as with Clear.
func (s *Studio) Resize(width, height int) error {
	if err := s.surface.Resize(width, height); err != nil {
		return err
	}
	s.reset()
	s.publish(Event{Type: EventCleared})
	return nil
}

func (s *Studio) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generated = nil
}

// Generated returns the last accepted generation result, or nil.
func (s *Studio) Generated() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}

// DismissGenerated drops the generated image while keeping the drawing, so
// the user can draw again and regenerate.
func (s *Studio) DismissGenerated() {
	s.mu.Lock()
	s.generated = nil
	s.mu.Unlock()
}

// Snapshot encodes the whole surface as PNG. With outline set and a
// bounding box present, the box is drawn as a dashed rectangle.
func (s *Studio) Snapshot(outline bool) (*canvas.EncodedImage, error) {
	img, err := s.surface.Snapshot()
	if err != nil {
		return nil, err
	}
	box := s.surface.BoundingBox()
	if outline && box != nil {
		return canvas.Outline(img, *box, s.OutlineColor)
	}
	return canvas.EncodeBase64PNG(img)
}

// Generate runs the pipeline over the current drawing.
func (s *Studio) Generate(ctx context.Context, mode Mode) (*pipeline.Result, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	epoch := s.surface.Epoch()
	if s.surface.Drawing() {
		return nil, ErrStrokeInProgress
	}
	box := s.surface.BoundingBox()
	if box == nil {
		return nil, ErrNothingDrawn
	}
	src, err := s.surface.Snapshot()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.genSeq++
	seq := s.genSeq
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.genSeq == seq {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	var res *pipeline.Result
	if mode == ModeRefine {
		res, err = s.gen.Refine(runCtx, src, *box)
	} else {
		res, err = s.gen.Generate(runCtx, src, *box)
	}

	s.mu.Lock()
	closed = s.closed
	superseded := s.genSeq != seq
	stale := s.surface.Epoch() != epoch
	if err == nil && !closed && !superseded && !stale {
		s.generated = res
	}
	s.mu.Unlock()

	switch {
	case closed:
		return nil, ErrClosed
	case superseded:
		s.logger.Debug("generation superseded", "box", box.String())
		return nil, ErrSuperseded
	case stale:
		s.logger.Info("discarding stale generation", "box", box.String())
		return nil, ErrStale
	case err != nil:
		s.logger.Warn("generation failed", "mode", string(mode), "box", box.String(), "error", err)
		s.publish(Event{Type: EventGenerationFailed, Error: FailureMessage})
		return nil, err
	}

	s.publish(Event{Type: EventGenerated, BoundingBox: box, Result: res})
	return res, nil
}

// Close cancels any running generation, drops every subscriber and releases
// the surface.
func (s *Studio) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.subs = make(map[uint64]func(Event))
	s.mu.Unlock()

	return s.surface.Close()
}
