package canvas

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg"
)

// Outline styling for the bounding box preview.
const (
	OutlineWidth = 4
	OutlineDash  = 8
	OutlineGap   = 6
)

// DefaultOutlineColor is used when Outline is given a nil color.
var DefaultOutlineColor color.Color = color.NRGBA{0xe6, 0x7e, 0x22, 0xff}

// Outline renders img with a dashed rectangle drawn just inside box and
// returns the result as PNG. The source image is not modified.
func Outline(img image.Image, box BoundingBox, col color.Color) (*EncodedImage, error) {
	if err := box.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	if col == nil {
		col = DefaultOutlineColor
	}

	dc := gg.NewContextForImage(img)
	defer dc.Close()

	inset := float64(OutlineWidth) / 2
	dc.SetColor(col)
	dc.SetLineWidth(OutlineWidth)
	dc.SetDash(OutlineDash, OutlineGap)
	dc.DrawRectangle(
		float64(box.MinX)+inset,
		float64(box.MinY)+inset,
		float64(box.Width())-OutlineWidth,
		float64(box.Height())-OutlineWidth,
	)
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("failed to draw outline: %w", err)
	}
	if err := flushGPU(dc); err != nil {
		return nil, fmt.Errorf("failed to flush outline: %w", err)
	}

	return EncodeBase64PNG(dc.Image())
}
