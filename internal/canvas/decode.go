package canvas

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImageData is returned when an uploaded image payload cannot be
// parsed or decoded.
var ErrInvalidImageData = errors.New("invalid image data")

// DecodeDataURL decodes a data:image/<type>;base64,<payload> URL, or a bare
// base64 payload, into an RGBA image. It returns the image and the name of
// the format it was encoded in.
func DecodeDataURL(s string) (*image.RGBA, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImageData)
	}

	payload := s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: missing data URL separator", ErrInvalidImageData)
		}
		mediaType := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(mediaType, ";base64") {
			return nil, "", fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidImageData)
		}
		if !strings.HasPrefix(mediaType, "image/") {
			return nil, "", fmt.Errorf("%w: unsupported media type %q", ErrInvalidImageData, strings.TrimSuffix(mediaType, ";base64"))
		}
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}
	return clone.AsRGBA(img), format, nil
}
