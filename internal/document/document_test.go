//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

const sample = `# Loomings

Call me Ishmael.[^1] Some years ago, never mind how long precisely.

![The Pequod](pequod.png)

- first item
- second item with a note[^2]

> It is a way I have of driving off the spleen.

` + "```" + `
code line one
code line two
` + "```" + `

[^1]: The narrator.
[^2]: A second note.
`

func TestParse_BlocksAndAnchors(t *testing.T) {
	src := Parse([]byte(sample))

	var kinds []BlockKind
	for _, b := range src.Blocks {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []BlockKind{Heading, Paragraph, Paragraph, ListItem, ListItem, Quote, Code, Note, Note}, kinds)

	assert.Equal(t, "Loomings", src.Blocks[0].Text)
	assert.Equal(t, 1, src.Blocks[0].Level)

	p := src.Blocks[1]
	require.Len(t, p.Anchors, 1)
	assert.Equal(t, "fn-1", p.Anchors[0].ID)
	assert.Equal(t, geometry.Footnote, p.Anchors[0].Kind)
	assert.Equal(t, "Call me Ishmael.[1] Some years ago, never mind how long precisely.", p.Text)
	assert.Equal(t, len([]rune("Call me Ishmael.")), p.Anchors[0].Rune)

	img := src.Blocks[2]
	require.Len(t, img.Anchors, 1)
	assert.Equal(t, "img-1", img.Anchors[0].ID)
	assert.Equal(t, geometry.Image, img.Anchors[0].Kind)
	assert.Equal(t, "[image: The Pequod]", img.Text)

	assert.Equal(t, "• first item", src.Blocks[3].Text)
	assert.Equal(t, "fn-2", src.Blocks[4].Anchors[0].ID)
	assert.Equal(t, "code line one\ncode line two", src.Blocks[6].Text)
	assert.Equal(t, "[1] The narrator.", src.Blocks[7].Text)
}

func TestParse_OrderedListAndDuplicateRefs(t *testing.T) {
	src := Parse([]byte("3. three[^a]\n4. four[^a]\n\n[^a]: shared\n"))
	require.GreaterOrEqual(t, len(src.Blocks), 2)
	assert.Equal(t, "3. three[1]", src.Blocks[0].Text)
	assert.Equal(t, "4. four[1]", src.Blocks[1].Text)
	assert.Equal(t, "fn-1", src.Blocks[0].Anchors[0].ID)
	assert.Equal(t, "fn-1-2", src.Blocks[1].Anchors[0].ID)
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{name: "fits", text: "hello world", width: 20, want: []string{"hello world"}},
		{name: "word break", text: "hello big world", width: 9, want: []string{"hello big", "world"}},
		{name: "long word", text: "abcdefghij", width: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "newlines", text: "a\n\nb", width: 4, want: []string{"a", "", "b"}},
		{name: "empty", text: "", width: 4, want: []string{""}},
		{name: "wide runes", text: "日本語テキスト", width: 6, want: []string{"日本語", "テキス", "ト"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runes := []rune(tt.text)
			var got []string
			for _, s := range wrap(runes, tt.width) {
				got = append(got, string(runes[s.start:s.end]))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_Geometry(t *testing.T) {
	src := &Source{Blocks: []SourceBlock{
		{Text: "one two three four", Anchors: []Anchor{{ID: "a", Rune: 8}}},
		{Text: "five", Anchors: []Anchor{{ID: "b", Kind: geometry.Image, Rune: 4}}},
	}}
	d := New(src, 8, 1)
	d.Resize(8, 2)

	// "one two" / "three" / "four", gap, "five"
	require.Len(t, d.Rows(), 5)
	blocks := d.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, geometry.Block{Index: 0, Top: 0, Bottom: 3, Text: "one two three four"}, blocks[0])
	assert.InDelta(t, 4, blocks[1].Top, 1e-9)

	markers := d.Markers()
	require.Len(t, markers, 2)
	assert.InDelta(t, 1.5, markers[0].Y, 1e-9, "anchor on the second wrapped line")
	assert.InDelta(t, 4.5, markers[1].Y, 1e-9, "anchor at end of text maps to the last line")
	assert.Equal(t, 1, markers[1].Order)

	vp := d.Viewport()
	assert.InDelta(t, 3, vp.ScrollMax, 1e-9)
	d.ScrollTo(10)
	assert.InDelta(t, 3, d.Viewport().Offset, 1e-9)
	d.ScrollTo(-1)
	assert.Zero(t, d.Viewport().Offset)
}

func TestInsertMarker(t *testing.T) {
	d := New(Parse([]byte("alpha\n\nbeta\n")), 40, 1)
	d.Resize(40, 10)
	before := d.Markers()

	require.True(t, d.InsertMarker(geometry.Annotation, "ai-1", 1))
	assert.False(t, d.InsertMarker(geometry.Annotation, "ai-2", 9))
	assert.False(t, d.InsertMarker(geometry.Annotation, "ai-3", -1))

	markers := d.Markers()
	require.Len(t, markers, 1)
	assert.Empty(t, before, "previously returned geometry is not mutated")
	assert.Equal(t, "ai-1", markers[0].ID)
	assert.Equal(t, 1, markers[0].BlockIndex)
	assert.Equal(t, "beta ✦", d.Blocks()[1].Text)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody.\n"), 0o600))
	src, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, src.Blocks, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
