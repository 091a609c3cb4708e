package document

import (
	"github.com/mattn/go-runewidth"
)

// span is a half-open rune range [start, end) of one wrapped line.
type span struct {
	start, end int
}

// wrap breaks runes into lines no wider than width display cells, breaking
// at spaces where possible and at explicit newlines always. An empty input
// still occupies one line.
func wrap(runes []rune, width int) []span {
	if width < 1 {
		width = 1
	}
	var spans []span
	start := 0
	for start < len(runes) {
		w, lastSpace := 0, -1
		i := start
		for ; i < len(runes); i++ {
			r := runes[i]
			if r == '\n' {
				break
			}
			rw := runewidth.RuneWidth(r)
			if w+rw > width && i > start {
				break
			}
			if r == ' ' {
				lastSpace = i
			}
			w += rw
		}
		switch {
		case i >= len(runes):
			spans = append(spans, span{start, i})
			start = i
		case runes[i] == '\n':
			spans = append(spans, span{start, i})
			start = i + 1
		case runes[i] == ' ':
			spans = append(spans, span{start, i})
			start = i + 1
		case lastSpace > start:
			spans = append(spans, span{start, lastSpace})
			start = lastSpace + 1
		default:
			spans = append(spans, span{start, i})
			start = i
		}
	}
	if len(spans) == 0 {
		spans = append(spans, span{0, 0})
	}
	return spans
}

// lineOf returns the index of the line holding rune offset pos. Offsets at
// or past the end of the text map to the last line.
func lineOf(spans []span, pos int) int {
	line := 0
	for i, s := range spans {
		if s.start > pos {
			break
		}
		line = i
	}
	return line
}
