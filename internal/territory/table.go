package territory

import (
	"math"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

// Entry describes one territory for display. Upper is nil for the last,
// unbounded territory.
type Entry struct {
	MarkerID string        `json:"markerId" yaml:"marker_id"`
	Kind     geometry.Kind `json:"kind" yaml:"kind"`
	Block    int           `json:"block" yaml:"block"`
	Y        float64       `json:"y" yaml:"y"`
	Stop     float64       `json:"stop" yaml:"stop"`
	Lower    float64       `json:"lower" yaml:"lower"`
	Upper    *float64      `json:"upper,omitempty" yaml:"upper,omitempty"`
}

// Table pairs each territory of m with the marker it was built from.
// markers must be the set m was built from.
func Table(m Map, markers []geometry.Marker) []Entry {
	if len(markers) != m.Len() {
		return nil
	}
	out := make([]Entry, m.Len())
	for i, mk := range markers {
		lower, upper := m.Bounds(i)
		e := Entry{
			MarkerID: mk.ID,
			Kind:     mk.Kind,
			Block:    mk.BlockIndex,
			Y:        mk.Y,
			Stop:     m.Stops[i],
			Lower:    lower,
		}
		if !math.IsInf(upper, 1) {
			e.Upper = &upper
		}
		out[i] = e
	}
	return out
}
