// Package territory partitions document space into one contiguous scroll
// range per marker.
//
// Every marker gets an ideal stop, the scroll offset that places it on the
// eye-line. Stops are spread apart by a minimum spacing in document order
// (forward pass) and then pulled back inside the reachable scroll range
// (backward pass). Boundaries sit halfway between adjacent stops.
package territory

import (
	"math"
	"sort"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

// Options configures the builder.
type Options struct {
	// EyeLineRatio is the fraction of viewport height a marker should sit at
	// when its territory is entered.
	EyeLineRatio float64 `yaml:"eye_line_ratio" validate:"ratio"`
	// MinSpacing is the preferred minimum height of a territory.
	MinSpacing float64 `yaml:"min_spacing" validate:"gt=0"`
}

// Map is an immutable territory partition for one marker set.
type Map struct {
	Stops      []float64 `json:"stops" yaml:"stops"`
	Boundaries []float64 `json:"boundaries" yaml:"boundaries"`
	ScrollMax  float64   `json:"scrollMax" yaml:"scroll_max"`
	// Spacing is the minimum spacing actually applied.
	Spacing float64 `json:"spacing" yaml:"spacing"`
	// Compressed is set when the document was too short for the configured
	// spacing and Spacing was reduced to ScrollMax/len(Stops).
	Compressed bool `json:"compressed" yaml:"compressed"`
}

// Build computes the territory map for markers (in document order) over a
// viewport. An empty marker list yields an empty map.
func Build(markers []geometry.Marker, vp geometry.Viewport, opts Options) Map {
	scrollMax := math.Max(vp.ScrollMax, 0)
	m := Map{ScrollMax: scrollMax, Spacing: opts.MinSpacing}
	n := len(markers)
	if n == 0 {
		return m
	}
	if scrollMax/float64(n) < m.Spacing {
		m.Spacing = scrollMax / float64(n)
		m.Compressed = true
	}

	stops := make([]float64, n)
	for i, mk := range markers {
		stops[i] = geometry.Clamp(mk.Y-vp.Height*opts.EyeLineRatio, 0, scrollMax)
	}
	for i := 1; i < n; i++ {
		if floor := stops[i-1] + m.Spacing; stops[i] < floor {
			stops[i] = floor
		}
	}
	if stops[n-1] > scrollMax {
		stops[n-1] = scrollMax
		for i := n - 2; i >= 0; i-- {
			ceil := stops[i+1] - m.Spacing
			if stops[i] <= ceil {
				break
			}
			stops[i] = ceil
		}
	}

	m.Stops = stops
	if n > 1 {
		m.Boundaries = make([]float64, n-1)
		for i := range m.Boundaries {
			m.Boundaries[i] = (stops[i] + stops[i+1]) / 2
		}
	}
	return m
}

// Len returns the number of territories.
func (m Map) Len() int { return len(m.Stops) }

// Bounds returns the half-open range [lower, upper) owned by territory i.
// The first territory starts at 0 and the last extends to +Inf.
func (m Map) Bounds(i int) (lower, upper float64) {
	lower, upper = 0, math.Inf(1)
	if i > 0 {
		lower = m.Boundaries[i-1]
	}
	if i < len(m.Boundaries) {
		upper = m.Boundaries[i]
	}
	return lower, upper
}

// Locate returns the territory containing offset, or -1 for an empty map.
func (m Map) Locate(offset float64) int {
	if len(m.Stops) == 0 {
		return -1
	}
	// Half-open territories: a boundary belongs to the territory above it.
	i := sort.Search(len(m.Boundaries), func(i int) bool { return m.Boundaries[i] > offset })
	if i >= len(m.Stops) {
		i = len(m.Stops) - 1
	}
	return i
}

// Stop returns the ideal stop of territory i.
func (m Map) Stop(i int) (float64, bool) {
	if i < 0 || i >= len(m.Stops) {
		return 0, false
	}
	return m.Stops[i], true
}
