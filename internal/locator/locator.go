// Package locator finds the content block nearest to the viewport eye-line.
package locator

import (
	"math"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

// Distance returns how far eyeLine is from the block's vertical span; zero
// when the eye-line falls inside it.
func Distance(b geometry.Block, eyeLine float64) float64 {
	switch {
	case eyeLine < b.Top:
		return b.Top - eyeLine
	case eyeLine >= b.Bottom:
		return eyeLine - b.Bottom
	default:
		return 0
	}
}

// Nearest returns the index into blocks of the block closest to eyeLine, or
// -1 when blocks is empty. Ties go to the earlier block.
func Nearest(blocks []geometry.Block, eyeLine float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, b := range blocks {
		d := Distance(b, eyeLine)
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

// EyeLine is the document-space offset of the eye-line for a viewport.
func EyeLine(vp geometry.Viewport, ratio float64) float64 {
	return vp.Offset + vp.Height*ratio
}
