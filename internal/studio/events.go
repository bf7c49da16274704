package studio

import (
	"sync"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/pipeline"
)

// EventType names a studio state change.
type EventType string

const (
	EventBoundingBox      EventType = "bbox"
	EventCleared          EventType = "cleared"
	EventGenerated        EventType = "generated"
	EventGenerationFailed EventType = "generation_failed"
)

// Event describes a state change delivered to subscribers.
type Event struct {
	Type        EventType           `json:"type"`
	BoundingBox *canvas.BoundingBox `json:"boundingBox,omitempty"`
	Result      *pipeline.Result    `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Subscribe registers fn for every future event and returns the function
// that removes it. fn is called synchronously on the goroutine that caused
// the event and must not call back into the studio's subscription methods.
func (s *Studio) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Studio) publish(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
