// Package reporter rate-limits focus reports and defines the outbound event
// contract.
package reporter

import (
	"math"
	"time"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

// bottomEpsilon absorbs fractional offsets just short of the scroll maximum.
const bottomEpsilon = 0.5

// Options configures the reporter.
type Options struct {
	// MinMotion is the offset change that triggers a report even when the
	// focused marker is unchanged.
	MinMotion float64 `yaml:"min_motion" validate:"gte=0"`
	// TugMargin is how far past the scroll maximum an overscroll must pull
	// to count as a tug.
	TugMargin float64 `yaml:"tug_margin" validate:"gt=0"`
}

// Pass is the result of one focus evaluation.
type Pass struct {
	// Frame is the frame sequence number, zero for passes forced outside a
	// frame.
	Frame        uint64
	Index        int
	Marker       geometry.Marker
	BlockIndex   int
	Viewport     geometry.Viewport
	Programmatic bool
	At           time.Time
}

// Reporter turns passes into focus-changed events.
type Reporter struct {
	opts Options
	sink Sink

	reported   bool
	lastIndex  int
	lastOffset float64
	lastFrame  uint64
}

// New returns a reporter emitting to sink.
func New(opts Options, sink Sink) *Reporter {
	if sink == nil {
		sink = Discard
	}
	return &Reporter{opts: opts, sink: sink, lastIndex: -1}
}

// Report emits a focus-changed event when the focused marker changed or the
// offset moved more than MinMotion since the last report. At most one pass
// per frame is considered. It reports whether an event was emitted.
func (r *Reporter) Report(p Pass) bool {
	if p.Frame != 0 {
		if p.Frame == r.lastFrame {
			return false
		}
		r.lastFrame = p.Frame
	}
	if p.Index < 0 {
		return false
	}
	offset := p.Viewport.Offset
	if r.reported && p.Index == r.lastIndex && math.Abs(offset-r.lastOffset) <= r.opts.MinMotion {
		return false
	}
	r.reported = true
	r.lastIndex = p.Index
	r.lastOffset = offset

	fraction := 0.0
	if p.Viewport.ScrollMax > 0 {
		fraction = geometry.Clamp(offset/p.Viewport.ScrollMax, 0, 1)
	}
	r.sink.Emit(Event{
		Type: FocusChanged,
		At:   p.At,
		Focus: &FocusChange{
			MarkerID:       p.Marker.ID,
			MarkerKind:     p.Marker.Kind.String(),
			BlockIndex:     p.BlockIndex,
			Offset:         offset,
			OffsetFraction: fraction,
			ViewportHeight: p.Viewport.Height,
			IsProgrammatic: p.Programmatic,
		},
	})
	return true
}

// Forget clears the last report so the next pass always emits.
func (r *Reporter) Forget() {
	r.reported = false
	r.lastIndex = -1
}

// TugDetector recognizes a pull past the end of the document after the
// viewport already reached the bottom.
type TugDetector struct {
	margin   float64
	atBottom bool
	tugged   bool
}

// NewTugDetector returns a detector with the given overscroll margin.
func NewTugDetector(margin float64) *TugDetector {
	return &TugDetector{margin: margin}
}

// Observe feeds one raw scroll offset and reports whether it completes a tug.
// A tug fires once per overscroll episode; the episode ends when the offset
// settles back within the scroll range.
func (d *TugDetector) Observe(offset, scrollMax float64) bool {
	if d.tugged {
		if offset <= scrollMax {
			d.tugged = false
			d.atBottom = offset >= scrollMax-bottomEpsilon
		}
		return false
	}
	if d.atBottom && offset > scrollMax+d.margin {
		d.tugged = true
		d.atBottom = false
		return true
	}
	d.atBottom = offset >= scrollMax-bottomEpsilon
	return false
}
