// Package imagegen builds Generated Image References: URLs that, when
// fetched, render a prompt as an image on a public text-to-image service.
//
// Building a reference performs no network I/O and cannot fail. Whether the
// service later renders the image successfully is a concern of whoever
// fetches the URL.
package imagegen

import (
	"fmt"
	"math"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the Pollinations text-to-image endpoint.
	DefaultBaseURL = "https://image.pollinations.ai/prompt/"

	// DefaultMaxDimension caps both sides of a generated image.
	DefaultMaxDimension = 1024
)

// RefinePrompt asks the service to clean up the drawing without changing
// what it depicts. It is used when generation skips tagging.
const RefinePrompt = "Professional, yet simple quality sketch of this image. Keeping the main shapes and ideas, just refining lines and making it cleaner."

// Reference is a Generated Image Reference.
type Reference struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seed   int64  `json:"seed"`
}

// Builder constructs references. The zero value is usable.
type Builder struct {
	// BaseURL is the service prefix the escaped prompt is appended to.
	BaseURL string

	// MaxDimension caps width and height. Zero means DefaultMaxDimension.
	MaxDimension int

	// NoLogo asks the service to omit its watermark.
	NoLogo bool

	// Seed returns the seed for each reference. Nil means the current time
	// in nanoseconds.
	Seed func() int64
}

// NewBuilder returns a Builder with the default service settings.
func NewBuilder() *Builder {
	return &Builder{
		BaseURL:      DefaultBaseURL,
		MaxDimension: DefaultMaxDimension,
		NoLogo:       true,
	}
}

// Build returns the reference for prompt rendered at roughly width x height.
// The requested size is scaled down, keeping its aspect ratio, until neither
// side exceeds the builder's maximum.
func (b *Builder) Build(prompt string, width, height int) Reference {
	base := b.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	maxDim := b.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	seed := time.Now().UnixNano()
	if b.Seed != nil {
		seed = b.Seed()
	}

	w, h := Dimensions(width, height, maxDim)

	q := fmt.Sprintf("width=%d&height=%d&seed=%d", w, h, seed)
	if b.NoLogo {
		q += "&nologo=true"
	}

	return Reference{
		URL:    base + url.PathEscape(prompt) + "?" + q,
		Width:  w,
		Height: h,
		Seed:   seed,
	}
}

// Dimensions scales width x height down so that neither side exceeds max,
// preserving the aspect ratio. Sizes already within max are returned as is;
// results are never below 1. Non-positive inputs yield max x max.
func Dimensions(width, height, max int) (int, int) {
	if width <= 0 || height <= 0 {
		return max, max
	}
	if width <= max && height <= max {
		return width, height
	}

	scale := math.Min(float64(max)/float64(width), float64(max)/float64(height))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return clamp(w, 1, max), clamp(h, 1, max)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
