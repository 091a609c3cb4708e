// Package quote locates a quoted passage inside document blocks.
//
// Matching is best effort and tries progressively looser strategies: exact
// substring, whitespace-normalized, prefix, and finally keyword overlap.
package quote

import (
	"strings"
	"unicode"
)

// Strategy identifies which pass produced a match.
type Strategy int

const (
	Exact Strategy = iota
	Normalized
	Prefix
	Keywords
)

func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case Normalized:
		return "normalized"
	case Prefix:
		return "prefix"
	case Keywords:
		return "keywords"
	default:
		return "unknown"
	}
}

const (
	// prefixRunes caps how much of the normalized quote the prefix pass keeps.
	prefixRunes = 40
	// minPrefixRunes below which a prefix is too ambiguous to try.
	minPrefixRunes = 12
	minKeywordLen  = 4
)

//nolint:gochecknoglobals // immutable lookup table used across the package.
var stopwords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "have": {}, "were": {}, "which": {},
	"their": {}, "there": {}, "would": {}, "could": {}, "should": {}, "about": {}, "into": {},
	"than": {}, "then": {}, "them": {}, "they": {}, "what": {}, "when": {}, "where": {},
	"will": {}, "your": {}, "been": {}, "also": {}, "some": {}, "only": {}, "very": {},
}

// Match is a located quote.
type Match struct {
	Block    int
	Strategy Strategy
	// Score is the keyword hit count for Keywords matches.
	Score int
}

// Find returns the first block containing quote, trying each strategy over
// all blocks before falling back to the next.
func Find(blocks []string, quote string) (Match, bool) {
	if strings.TrimSpace(quote) == "" || len(blocks) == 0 {
		return Match{}, false
	}
	for i, b := range blocks {
		if strings.Contains(b, quote) {
			return Match{Block: i, Strategy: Exact}, true
		}
	}

	nq := Normalize(quote)
	norm := make([]string, len(blocks))
	for i, b := range blocks {
		norm[i] = Normalize(b)
	}
	for i, b := range norm {
		if strings.Contains(b, nq) {
			return Match{Block: i, Strategy: Normalized}, true
		}
	}

	if prefix := prefixOf(nq); prefix != "" {
		for i, b := range norm {
			if strings.Contains(b, prefix) {
				return Match{Block: i, Strategy: Prefix}, true
			}
		}
	}

	return findKeywords(norm, ExtractKeywords(quote))
}

// prefixOf returns a leading span of q, at most two thirds of it and cut at
// a word boundary, or "" when q is too short for an unambiguous prefix.
func prefixOf(q string) string {
	r := []rune(q)
	n := min(prefixRunes, len(r)*2/3)
	if n < minPrefixRunes {
		return ""
	}
	for i := n - 1; i >= minPrefixRunes; i-- {
		if r[i] == ' ' {
			return string(r[:i])
		}
	}
	return string(r[:n])
}

func findKeywords(norm []string, keys []string) (Match, bool) {
	if len(keys) == 0 {
		return Match{}, false
	}
	need := (len(keys) + 1) / 2
	best := Match{Block: -1, Strategy: Keywords}
	for i, b := range norm {
		words := wordSet(b)
		score := 0
		for _, k := range keys {
			if _, ok := words[k]; ok {
				score++
			}
		}
		if score > best.Score {
			best.Block, best.Score = i, score
		}
	}
	if best.Block < 0 || best.Score < need {
		return Match{}, false
	}
	return best, true
}

// Normalize lowercases s, folds typographic quotes and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case '‘', '’':
			r = '\''
		case '“', '”':
			r = '"'
		case '–', '—':
			r = '-'
		}
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ExtractKeywords returns the distinct significant words of s, in order.
func ExtractKeywords(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words(s) {
		if len([]rune(w)) < minKeywordLen {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func wordSet(s string) map[string]struct{} {
	ws := words(s)
	set := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		set[w] = struct{}{}
	}
	return set
}
