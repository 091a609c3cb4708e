// Package geometry defines the document-space vocabulary shared by the engine:
// markers, content blocks, viewport metrics and the provider capabilities that
// expose them.
//
// All vertical positions are absolute document-space offsets. The unit is
// whatever the host lays out in (pixels in a browser, rows in a terminal).
package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the category of a reference marker.
type Kind int

const (
	Annotation Kind = iota
	Image
	Footnote
)

func (k Kind) String() string {
	switch k {
	case Annotation:
		return "annotation"
	case Image:
		return "image"
	case Footnote:
		return "footnote"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annotation", "insight", "ai":
		return Annotation, nil
	case "image", "img":
		return Image, nil
	case "footnote", "fn":
		return Footnote, nil
	}
	return 0, fmt.Errorf("unknown marker kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Marker is one embedded reference point. Y is the vertical center of the
// marker's element; Top and Bottom bound it.
type Marker struct {
	ID         string
	Kind       Kind
	Order      int
	BlockIndex int
	Y          float64
	Top        float64
	Bottom     float64
}

// Block is one content block (paragraph, heading, list item...) spanning
// [Top, Bottom) in document space.
type Block struct {
	Index  int
	Top    float64
	Bottom float64
	Text   string
}

// Viewport describes the visible window over the document.
type Viewport struct {
	Offset    float64
	Height    float64
	ScrollMax float64
}

// Provider exposes live document geometry. Markers are returned in document
// order.
type Provider interface {
	Markers() []Marker
	Blocks() []Block
	Viewport() Viewport
}

// Surface is a Provider that can also be scrolled and receive new markers.
type Surface interface {
	Provider
	// ScrollTo repositions the viewport; implementations clamp to [0, ScrollMax].
	ScrollTo(offset float64)
	// InsertMarker appends a marker at the end of the given block and reports
	// whether the block existed.
	InsertMarker(kind Kind, id string, blockIndex int) bool
}

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
