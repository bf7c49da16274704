package canvas

import (
	"fmt"
	"image"
	"os"

	"github.com/anthonynsimon/bild/clone"
)

// LoadFile reads and decodes a PNG, JPEG, GIF or WebP drawing from disk.
// It returns the image as RGBA and the name of the decoded format.
func LoadFile(path string) (*image.RGBA, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrInvalidImageData, path, err)
	}
	return clone.AsRGBA(img), format, nil
}
