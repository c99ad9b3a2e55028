package tools

import (
	"context"
	"sync"
)

// Source identifies where a piece of retrieved content came from, for
// display alongside an answer.
type Source struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// Recorder accumulates the sources consulted while answering a single
// request. Each request gets its own Recorder via WithRecorder, so
// concurrent requests never see each other's sources.
//
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	sources []Source
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a source, skipping duplicates. Order of first
// appearance is preserved.
func (r *Recorder) Record(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.sources {
		if have == s {
			return
		}
	}
	r.sources = append(r.sources, s)
}

// Sources returns a copy of the recorded sources in recording order.
func (r *Recorder) Sources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// recorderKey is an unexported context key for zero-allocation type safety.
type recorderKey struct{}

// WithRecorder stores a Recorder in the context. The orchestrator injects
// one per request; search tools record into it.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// RecorderFromContext retrieves the request's Recorder, or nil when none
// was injected. Tools must treat a nil Recorder as "do not track".
func RecorderFromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}
