package tagging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	twelve := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}

	tests := []struct {
		name    string
		outcome Outcome
		want    []string
	}{
		{"failure uses fallback", Failed(errors.New("timeout")), FallbackTags},
		{"empty success uses fallback", Succeeded(nil), FallbackTags},
		{"short list kept", Succeeded([]string{"cat", "animal"}), []string{"cat", "animal"}},
		{"truncated to max in order", Succeeded(twelve), twelve[:MaxTags]},
		{"exactly max", Succeeded(twelve[:MaxTags]), twelve[:MaxTags]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.outcome, MaxTags))
		})
	}
}

func TestResolve_DoesNotAliasFallback(t *testing.T) {
	tags := Resolve(Failed(errors.New("boom")), MaxTags)
	tags[0] = "mutated"

	assert.Equal(t, "sketch", FallbackTags[0])
	assert.Equal(t, []string{"sketch", "drawing", "artwork", "creative"}, Resolve(Failed(nil), MaxTags))
}

func TestOutcome_OK(t *testing.T) {
	assert.True(t, Succeeded([]string{"x"}).OK())
	assert.False(t, Succeeded([]string{}).OK())
	assert.False(t, Failed(errors.New("x")).OK())
}
