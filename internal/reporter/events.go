package reporter

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType names an outbound event.
type EventType string

const (
	FocusChanged  EventType = "focus-changed"
	OverscrollTug EventType = "overscroll-tug"
	QuoteNotFound EventType = "scroll-to-quote-failed"
)

// FocusChange is the focus-changed payload.
type FocusChange struct {
	MarkerID       string  `json:"markerId" yaml:"marker_id"`
	MarkerKind     string  `json:"markerKind" yaml:"marker_kind"`
	BlockIndex     int     `json:"blockIndex" yaml:"block_index"`
	Offset         float64 `json:"offset" yaml:"offset"`
	OffsetFraction float64 `json:"offsetFraction" yaml:"offset_fraction"`
	ViewportHeight float64 `json:"viewportHeight" yaml:"viewport_height"`
	IsProgrammatic bool    `json:"isProgrammatic" yaml:"is_programmatic"`
}

// Event is one fire-and-forget notification to the host.
type Event struct {
	Type  EventType    `json:"type"`
	At    time.Time    `json:"at"`
	Focus *FocusChange `json:"focus,omitempty"`
	Quote string       `json:"quote,omitempty"`
}

// Sink receives events. Emit must not block the engine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// JSONLines writes each event as one JSON document per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines returns a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Emit(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(e); err != nil {
		logrus.Debugf("event write failed: %v", err)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Of returns the recorded events of type t.
func (r *Recorder) Of(t EventType) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() { r.Events = nil }

// Fanout emits to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		s.Emit(e)
	}
}
