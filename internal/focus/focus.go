// Package focus tracks which marker owns the current viewport position.
package focus

import (
	"time"

	"github.com/ensigniasec/marginalia/internal/geometry"
	"github.com/ensigniasec/marginalia/internal/territory"
)

// None is the index reported when no marker is owned.
const None = -1

// Options configures the tracker.
type Options struct {
	// Hysteresis is the distance past a boundary required before ownership
	// moves to the neighboring territory.
	Hysteresis float64 `yaml:"hysteresis" validate:"gte=0"`
	// LargeJump is how far outside the owned territory an offset may land
	// before the incremental step gives up and searches from scratch.
	LargeJump float64 `yaml:"large_jump" validate:"gt=0"`
	// VisibilityMargin widens the viewport when deciding marker visibility.
	VisibilityMargin float64 `yaml:"visibility_margin" validate:"gte=0"`
	// VelocitySmoothing is the weight of the newest sample in the velocity
	// moving average.
	VelocitySmoothing float64 `yaml:"velocity_smoothing" validate:"gt=0,lte=1"`
}

// State is the focus state for one marker set. It is replaced wholesale when
// the marker set changes; only the tracker mutates it in place.
type State struct {
	Map territory.Map
	// Owner is the territory owner selected by the hysteresis search.
	Owner int
	// Focused is the owner after the visibility handover; this is the
	// index hosts see.
	Focused int
	// LastOffset and Velocity (units per second) follow raw scroll
	// notifications.
	LastOffset float64
	Velocity   float64

	lastAt time.Time
}

// NewState returns a fresh state over m. Scroll history is carried over
// from prev when given, ownership is not.
func NewState(m territory.Map, prev *State) *State {
	st := &State{Map: m, Owner: None, Focused: None}
	if prev != nil {
		st.LastOffset = prev.LastOffset
		st.Velocity = prev.Velocity
		st.lastAt = prev.lastAt
	}
	return st
}

// Tracker runs the incremental ownership search against a State.
type Tracker struct {
	opts Options
}

// NewTracker returns a tracker using opts.
func NewTracker(opts Options) *Tracker {
	return &Tracker{opts: opts}
}

// Observe records a raw scroll sample and updates the smoothed velocity.
func (t *Tracker) Observe(st *State, offset float64, now time.Time) {
	if !st.lastAt.IsZero() {
		if dt := now.Sub(st.lastAt).Seconds(); dt > 0 {
			v := (offset - st.LastOffset) / dt
			a := t.opts.VelocitySmoothing
			st.Velocity = st.Velocity*(1-a) + v*a
		}
	}
	st.LastOffset = offset
	st.lastAt = now
}

// Lock forces ownership to idx, used while a programmatic scroll owns the
// viewport.
func (t *Tracker) Lock(st *State, idx int) {
	if idx < 0 || idx >= st.Map.Len() {
		return
	}
	st.Owner = idx
	st.Focused = idx
}

// Update selects the owned marker for offset and returns the focused index,
// or None when there are no markers. markers must be the set st.Map was
// built from.
func (t *Tracker) Update(st *State, offset float64, markers []geometry.Marker, viewportHeight float64) int {
	n := st.Map.Len()
	if n == 0 || len(markers) != n {
		st.Owner, st.Focused = None, None
		return None
	}
	st.Owner = t.step(st, offset)
	st.Focused = t.handover(st.Owner, offset, markers, viewportHeight)
	return st.Focused
}

func (t *Tracker) step(st *State, y float64) int {
	m := st.Map
	n := m.Len()
	idx := st.Owner
	if idx < 0 || idx >= n {
		return m.Locate(y)
	}
	lower, upper := m.Bounds(idx)
	if y < lower-t.opts.LargeJump || y >= upper+t.opts.LargeJump {
		return m.Locate(y)
	}
	for idx < n-1 {
		if _, up := m.Bounds(idx); y < up+t.opts.Hysteresis {
			break
		}
		idx++
	}
	for idx > 0 {
		if lo, _ := m.Bounds(idx); y >= lo-t.opts.Hysteresis {
			break
		}
		idx--
	}
	return idx
}

// handover moves focus off a marker that is scrolled out of view onto the
// nearest visible neighbor in the direction of the viewport.
func (t *Tracker) handover(idx int, y float64, markers []geometry.Marker, vh float64) int {
	top := y - t.opts.VisibilityMargin
	bottom := y + vh + t.opts.VisibilityMargin
	visible := func(mk geometry.Marker) bool {
		return mk.Bottom > top && mk.Top < bottom
	}
	if visible(markers[idx]) {
		return idx
	}
	if markers[idx].Bottom <= top {
		for j := idx + 1; j < len(markers); j++ {
			if visible(markers[j]) {
				return j
			}
		}
		return idx
	}
	for j := idx - 1; j >= 0; j-- {
		if visible(markers[j]) {
			return j
		}
	}
	return idx
}
