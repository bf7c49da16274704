// Package tagging obtains descriptive tags for a drawing from a remote image
// recognition service.
//
// Tagging never fails a generation. A Tagger reports its result as an
// Outcome, and Resolve merges that outcome with the fixed fallback tag set,
// so downstream stages always receive a non-empty TagSet.
package tagging

import (
	"context"

	"github.com/ironsheep/sketchpad/internal/canvas"
)

// MaxTags is the number of service tags kept, in service order.
const MaxTags = 10

// FallbackTags replace the service tags when the call fails or returns
// nothing. They are generic on purpose and never derived from the pixels.
var FallbackTags = []string{"sketch", "drawing", "artwork", "creative"}

// Outcome is the result of one tagging call: either a list of tags or the
// error that prevented getting one.
type Outcome struct {
	Tags []string
	Err  error
}

// Succeeded wraps the tags returned by the service.
func Succeeded(tags []string) Outcome {
	return Outcome{Tags: tags}
}

// Failed wraps the reason a tagging call produced no tags.
func Failed(err error) Outcome {
	return Outcome{Err: err}
}

// OK reports whether the service answered with at least one tag.
func (o Outcome) OK() bool {
	return o.Err == nil && len(o.Tags) > 0
}

// Resolve turns an outcome into the TagSet handed to prompt synthesis. A
// failed or empty outcome yields exactly FallbackTags; otherwise the first
// max tags are kept in service order. The result is always a fresh slice.
func Resolve(o Outcome, max int) []string {
	if !o.OK() {
		return append([]string(nil), FallbackTags...)
	}
	tags := o.Tags
	if max > 0 && len(tags) > max {
		tags = tags[:max]
	}
	return append([]string(nil), tags...)
}

// Tagger describes an image as a list of tags.
type Tagger interface {
	Tag(ctx context.Context, img *canvas.EncodedImage) Outcome
}

// TaggerFunc adapts a function to the Tagger interface.
type TaggerFunc func(ctx context.Context, img *canvas.EncodedImage) Outcome

// Tag calls f.
func (f TaggerFunc) Tag(ctx context.Context, img *canvas.EncodedImage) Outcome {
	return f(ctx, img)
}
