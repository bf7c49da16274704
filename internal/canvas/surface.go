package canvas

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gg"
)

// Tool selects how a stroke is composited into the raster buffer.
type Tool int

const (
	// Pen composites the stroke over existing pixels (source-over).
	Pen Tool = iota
	// Eraser removes existing pixels under the stroke (destination-out).
	Eraser
)

func (t Tool) String() string {
	switch t {
	case Pen:
		return "pen"
	case Eraser:
		return "eraser"
	default:
		return "unknown"
	}
}

// ParseTool converts "pen" or "eraser" to a Tool.
func ParseTool(name string) (Tool, error) {
	switch name {
	case "pen":
		return Pen, nil
	case "eraser":
		return Eraser, nil
	default:
		return Pen, fmt.Errorf("unknown tool: %s", name)
	}
}

// Pen width limits, matching the size slider of the drawing UI.
const (
	MinPenWidth = 1
	MaxPenWidth = 20
)

// Point is a pointer position in buffer coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Options configures a Surface.
type Options struct {
	// PenWidth is the stroke width of the pen in pixels. Default 3.
	PenWidth float64

	// PenColor is the pen's stroke color. Default #2c3e50.
	PenColor color.Color

	// EraserScale multiplies PenWidth to get the eraser width. Default 3.
	EraserScale float64

	// Padding is the bounding box margin. Default DefaultPadding.
	Padding int

	// Logger receives rasterizer warnings. Default slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the options used by the drawing UI.
func DefaultOptions() Options {
	return Options{
		PenWidth:    3,
		PenColor:    color.RGBA{0x2c, 0x3e, 0x50, 0xff},
		EraserScale: 3,
		Padding:     DefaultPadding,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PenWidth <= 0 {
		o.PenWidth = d.PenWidth
	}
	if o.PenColor == nil {
		o.PenColor = d.PenColor
	}
	if o.EraserScale <= 0 {
		o.EraserScale = d.EraserScale
	}
	if o.Padding <= 0 {
		o.Padding = d.Padding
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Surface is the Canvas Capture Surface: a raster buffer plus the stroke
// state machine that writes into it.
type Surface struct {
	mu sync.Mutex

	dc      *gg.Context
	opts    Options
	tool    Tool
	drawing bool
	last    Point
	box     *BoundingBox
	epoch   uint64
}

// NewSurface allocates a fully transparent surface of the given size.
func NewSurface(width, height int, opts Options) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	s := &Surface{
		dc:   gg.NewContext(width, height),
		opts: opts.withDefaults(),
	}
	s.dc.Clear()
	return s, nil
}

// Close releases the drawing context. The surface must not be used afterwards.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Close()
}

// Size returns the buffer dimensions.
func (s *Surface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Width(), s.dc.Height()
}

// Tool returns the current tool.
func (s *Surface) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetTool selects the pen or the eraser for subsequent segments.
func (s *Surface) SetTool(t Tool) {
	s.mu.Lock()
	s.tool = t
	s.mu.Unlock()
}

// PenWidth returns the current pen width.
func (s *Surface) PenWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.PenWidth
}

// SetPenWidth changes the pen width. The value is clamped to
// [MinPenWidth, MaxPenWidth].
func (s *Surface) SetPenWidth(width float64) {
	s.mu.Lock()
	s.opts.PenWidth = math.Max(MinPenWidth, math.Min(MaxPenWidth, width))
	s.mu.Unlock()
}

// EraserWidth returns the width of eraser strokes.
func (s *Surface) EraserWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.PenWidth * s.opts.EraserScale
}

// Drawing reports whether a stroke is in progress.
func (s *Surface) Drawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing
}

// Epoch identifies the current drawing cycle. It changes whenever a stroke
// begins, the surface is cleared or the buffer is reallocated.
func (s *Surface) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// BeginStroke starts a new path at p. It is a no-op while a stroke is
// already in progress.
func (s *Surface) BeginStroke(p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing {
		return
	}
	s.drawing = true
	s.last = p
	s.epoch++
}

// ExtendStroke rasterizes the segment from the last recorded point to p
// and records p. It does nothing when no stroke is in progress.
func (s *Surface) ExtendStroke(p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drawing {
		return nil
	}

	from := s.last
	s.last = p

	if s.tool == Eraser {
		s.eraseSegment(from, p, s.opts.PenWidth*s.opts.EraserScale)
		return nil
	}
	return s.penSegment(from, p)
}

// EndStroke stops drawing and recomputes the bounding box over the entire
// buffer. It recomputes even if no stroke was in progress, so a pointer
// leaving the surface behaves like a pointer release.
func (s *Surface) EndStroke() *BoundingBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = false
	s.box = s.computeBoundingBox()
	return s.box.clone()
}

// ComputeBoundingBox rescans the buffer and returns the padded box of all
// drawn pixels, or nil if nothing is drawn. The stored box is not changed.
func (s *Surface) ComputeBoundingBox() *BoundingBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computeBoundingBox()
}

// BoundingBox returns the box computed at the end of the last stroke.
func (s *Surface) BoundingBox() *BoundingBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.box.clone()
}

// Clear resets every pixel to transparent and discards the bounding box.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.Clear()
	s.dc.ClearPath()
	s.drawing = false
	s.box = nil
	s.epoch++
}

// Resize reallocates the buffer to width x height. Existing contents are
// discarded, not resampled.
func (s *Surface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dc.Resize(width, height); err != nil {
		return err
	}
	s.dc.Clear()
	s.drawing = false
	s.box = nil
	s.epoch++
	return nil
}

// Snapshot returns a copy of the raster buffer.
func (s *Surface) Snapshot() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Crop copies the region identified by box into a new image of exactly
// box.Width() x box.Height() pixels.
func (s *Surface) Crop(box BoundingBox) (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return CropRegion(img, box)
}

// flushGPU pushes pending accelerated drawing into the pixmap.
var flushGPU = (*gg.Context).FlushGPU

func (s *Surface) snapshot() (*image.RGBA, error) {
	if err := flushGPU(s.dc); err != nil {
		return nil, fmt.Errorf("failed to flush drawing: %w", err)
	}
	return s.dc.ResizeTarget().ToImage(), nil
}

// computeBoundingBox scans the pixmap. A failed flush is logged and the scan
// runs over the pixels already rasterized on the CPU.
func (s *Surface) computeBoundingBox() *BoundingBox {
	if err := flushGPU(s.dc); err != nil {
		s.opts.Logger.Warn("failed to flush drawing before bounding box scan", "error", err)
	}
	return ComputeBoundingBox(s.pixels(), s.opts.Padding)
}

// pixels views the pixmap as an image without copying.
func (s *Surface) pixels() *image.RGBA {
	pm := s.dc.ResizeTarget()
	return &image.RGBA{
		Pix:    pm.Data(),
		Stride: pm.Width() * 4,
		Rect:   image.Rect(0, 0, pm.Width(), pm.Height()),
	}
}

func (s *Surface) penSegment(from, to Point) error {
	s.dc.SetColor(s.opts.PenColor)
	s.dc.SetLineWidth(s.opts.PenWidth)
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.SetLineJoin(gg.LineJoinRound)
	s.dc.DrawLine(from.X, from.Y, to.X, to.Y)
	if err := s.dc.Stroke(); err != nil {
		return fmt.Errorf("failed to rasterize stroke: %w", err)
	}
	return nil
}

// eraseSegment renders the segment into a scratch context covering only the
// segment's footprint, then scales down destination pixels by the coverage
// of that scratch stroke.
func (s *Surface) eraseSegment(from, to Point, width float64) {
	pad := width/2 + 1
	area := image.Rect(
		int(math.Floor(math.Min(from.X, to.X)-pad)),
		int(math.Floor(math.Min(from.Y, to.Y)-pad)),
		int(math.Ceil(math.Max(from.X, to.X)+pad)),
		int(math.Ceil(math.Max(from.Y, to.Y)+pad)),
	).Intersect(image.Rect(0, 0, s.dc.Width(), s.dc.Height()))
	if area.Empty() {
		return
	}

	scratch := gg.NewContext(area.Dx(), area.Dy())
	defer scratch.Close()
	scratch.Translate(-float64(area.Min.X), -float64(area.Min.Y))
	scratch.SetRGBA(0, 0, 0, 1)
	scratch.SetLineWidth(width)
	scratch.SetLineCap(gg.LineCapRound)
	scratch.SetLineJoin(gg.LineJoinRound)
	scratch.DrawLine(from.X, from.Y, to.X, to.Y)
	if err := scratch.Stroke(); err != nil {
		return
	}
	coverage := gg.NewMaskFromAlpha(scratch.Image())

	pm := s.dc.ResizeTarget()
	data := pm.Data()
	stride := pm.Width() * 4
	for y := 0; y < area.Dy(); y++ {
		for x := 0; x < area.Dx(); x++ {
			m := coverage.At(x, y)
			if m == 0 {
				continue
			}
			keep := uint32(255 - m)
			i := (area.Min.Y+y)*stride + (area.Min.X+x)*4
			for c := 0; c < 4; c++ {
				data[i+c] = uint8(uint32(data[i+c]) * keep / 255)
			}
		}
	}
}

func (b *BoundingBox) clone() *BoundingBox {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
