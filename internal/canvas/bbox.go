package canvas

import (
	"errors"
	"fmt"
	"image"
)

// DefaultPadding is the margin added around drawn pixels on every side of a
// bounding box before clamping to the buffer.
const DefaultPadding = 20

// ErrInvalidBox is returned when a bounding box does not describe a non-empty
// region inside the buffer.
var ErrInvalidBox = errors.New("invalid bounding box")

// BoundingBox is the padded rectangle enclosing every non-transparent pixel.
//
// MinX and MinY are inclusive, MaxX and MaxY are exclusive. After clamping,
// 0 <= MinX < MaxX <= width and 0 <= MinY < MaxY <= height.
type BoundingBox struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() int {
	return b.MaxX - b.MinX
}

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() int {
	return b.MaxY - b.MinY
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Validate checks that the box is non-empty and lies within bounds.
func (b BoundingBox) Validate(bounds image.Rectangle) error {
	if b.MinX >= b.MaxX || b.MinY >= b.MaxY {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) is empty", ErrInvalidBox, b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	if !b.Rect().In(bounds) {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) outside buffer (%d,%d)-(%d,%d)",
			ErrInvalidBox, b.MinX, b.MinY, b.MaxX, b.MaxY,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// ComputeBoundingBox scans img once and returns the box around all pixels
// whose alpha is above zero, expanded by padding and clamped to the image
// extents. It returns nil if img is entirely transparent.
//
// The returned coordinates are relative to img.Bounds().Min.
//
// *image.RGBA and *image.NRGBA are scanned directly over their Pix slices;
// other image types fall back to img.At.
func ComputeBoundingBox(img image.Image, padding int) *BoundingBox {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	minX, minY := width, height
	maxX, maxY := -1, -1

	visit := func(x, y int) {
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	switch src := img.(type) {
	case *image.RGBA:
		scanAlpha(src.Pix, src.Stride, width, height, visit)
	case *image.NRGBA:
		scanAlpha(src.Pix, src.Stride, width, height, visit)
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if _, _, _, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA(); a > 0 {
					visit(x, y)
				}
			}
		}
	}

	if maxX < 0 {
		return nil
	}

	// The exclusive upper bound is padded from the last drawn column, so the
	// clamp limit is the buffer extent itself. It always reaches at least one
	// past the last drawn pixel, so a zero padding still covers the drawing.
	upper := max(padding, 1)
	return &BoundingBox{
		MinX: max(0, minX-padding),
		MinY: max(0, minY-padding),
		MaxX: min(width, maxX+upper),
		MaxY: min(height, maxY+upper),
	}
}

// scanAlpha walks a 4-byte-per-pixel buffer and calls visit for the pixels
// at the left and right edge of each row's drawn span. Pixels between the two
// cannot move the box, so they are skipped.
func scanAlpha(pix []uint8, stride, width, height int, visit func(x, y int)) {
	for y := 0; y < height; y++ {
		row := pix[y*stride : y*stride+width*4]
		first := -1
		for x := 0; x < width; x++ {
			if row[x*4+3] != 0 {
				first = x
				break
			}
		}
		if first < 0 {
			continue
		}
		visit(first, y)
		for x := width - 1; x > first; x-- {
			if row[x*4+3] != 0 {
				visit(x, y)
				break
			}
		}
	}
}
