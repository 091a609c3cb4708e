// Package document lays out a parsed Markdown document as terminal rows and
// serves its geometry to the engine. One document-space unit is one row.
package document

import (
	"errors"
	"math"
	"sort"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

// ErrTooLarge is returned for documents above the size limit.
var ErrTooLarge = errors.New("document too large")

// Row is one laid-out line.
type Row struct {
	Block int
	Text  string
}

// Document is a laid-out Source with a scroll position. It implements
// geometry.Surface. Not safe for concurrent use.
type Document struct {
	src    *Source
	width  int
	gap    int
	height float64
	offset float64

	rows    []Row
	blocks  []geometry.Block
	markers []geometry.Marker
}

var _ geometry.Surface = (*Document)(nil)

// New lays out src at width columns with gap blank rows between blocks.
func New(src *Source, width, gap int) *Document {
	if src == nil {
		src = &Source{}
	}
	d := &Document{src: src, width: width, gap: max(gap, 0)}
	d.layout()
	return d
}

// Resize changes the wrap width and viewport height, relaying out when the
// width changed.
func (d *Document) Resize(width int, height float64) {
	d.height = math.Max(height, 0)
	if width != d.width {
		d.width = width
		d.layout()
	}
	d.offset = geometry.Clamp(d.offset, 0, d.scrollMax())
}

func (d *Document) layout() {
	// Fresh slices: callers may still hold the previous geometry.
	d.rows, d.blocks, d.markers = nil, nil, nil

	y := 0
	for bi, sb := range d.src.Blocks {
		if bi > 0 {
			for i, gap := 0, d.gap; i < gap; i++ {
				d.rows = append(d.rows, Row{Block: -1})
			}
			y += d.gap
		}
		runes := []rune(sb.Text)
		spans := wrap(runes, d.width)
		for _, s := range spans {
			d.rows = append(d.rows, Row{Block: bi, Text: string(runes[s.start:s.end])})
		}
		d.blocks = append(d.blocks, geometry.Block{
			Index:  bi,
			Top:    float64(y),
			Bottom: float64(y + len(spans)),
			Text:   sb.Text,
		})

		anchors := append([]Anchor(nil), sb.Anchors...)
		sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].Rune < anchors[j].Rune })
		for _, a := range anchors {
			row := float64(y + lineOf(spans, a.Rune))
			d.markers = append(d.markers, geometry.Marker{
				ID:         a.ID,
				Kind:       a.Kind,
				Order:      len(d.markers),
				BlockIndex: bi,
				Y:          row + 0.5,
				Top:        row,
				Bottom:     row + 1,
			})
		}
		y += len(spans)
	}
	d.offset = geometry.Clamp(d.offset, 0, d.scrollMax())
}

func (d *Document) scrollMax() float64 {
	return math.Max(0, float64(len(d.rows))-d.height)
}

func (d *Document) Markers() []geometry.Marker { return d.markers }

func (d *Document) Blocks() []geometry.Block { return d.blocks }

func (d *Document) Viewport() geometry.Viewport {
	return geometry.Viewport{Offset: d.offset, Height: d.height, ScrollMax: d.scrollMax()}
}

// ScrollTo moves the viewport, clamped to the scroll range.
func (d *Document) ScrollTo(offset float64) {
	d.offset = geometry.Clamp(offset, 0, d.scrollMax())
}

// InsertMarker appends a marker glyph at the end of block blockIndex and
// relays out the document.
func (d *Document) InsertMarker(kind geometry.Kind, id string, blockIndex int) bool {
	if blockIndex < 0 || blockIndex >= len(d.src.Blocks) {
		return false
	}
	sb := &d.src.Blocks[blockIndex]
	sb.Text += " "
	sb.Anchors = append(sb.Anchors, Anchor{ID: id, Kind: kind, Rune: len([]rune(sb.Text))})
	sb.Text += Glyph(kind)
	d.layout()
	return true
}

// Rows returns the laid-out lines.
func (d *Document) Rows() []Row { return d.rows }

// Source returns the parsed blocks backing the layout.
func (d *Document) Source() *Source { return d.src }

// Width is the current wrap width.
func (d *Document) Width() int { return d.width }

// Glyph is the inline text used for injected markers.
func Glyph(kind geometry.Kind) string {
	switch kind {
	case geometry.Image:
		return "[image]"
	case geometry.Footnote:
		return "[*]"
	default:
		return "✦"
	}
}
