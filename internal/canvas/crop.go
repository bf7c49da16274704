package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// MimeTypePNG is the media type of every encoded image.
const MimeTypePNG = "image/png"

// EncodedImage is a PNG payload in both raw and base64 transport form.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PNG         []byte `json:"-"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// DataURL returns the payload as a data:image/png;base64 URL.
func (e *EncodedImage) DataURL() string {
	return "data:" + e.MimeType + ";base64," + e.ImageBase64
}

// CropRegion extracts box from img into a new image of exactly
// box.Width() x box.Height() pixels.
func CropRegion(img image.Image, box BoundingBox) (*image.NRGBA, error) {
	if err := box.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	return imaging.Crop(img, box.Rect()), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64PNG encodes img as PNG and wraps it for transport.
func EncodeBase64PNG(img image.Image) (*EncodedImage, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		PNG:         data,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    MimeTypePNG,
	}, nil
}

// DataURL encodes img as a data:image/png;base64 URL.
func DataURL(img image.Image) (string, error) {
	enc, err := EncodeBase64PNG(img)
	if err != nil {
		return "", err
	}
	return enc.DataURL(), nil
}
