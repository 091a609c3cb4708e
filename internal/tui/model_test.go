//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/storage"
)

// harness drives a Model with a hand-stepped clock. Bubble Tea commands are
// not executed; frames are delivered explicitly.
type harness struct {
	t   *testing.T
	m   Model
	now time.Time
	rec *reporter.Recorder
}

// sampleSource has 30 one-row paragraphs; paragraphs 2, 12 and 22 carry
// footnotes, so markers sit on rows 4, 24 and 44.
func sampleSource() *document.Source {
	var b strings.Builder
	refs := map[int]string{2: "a", 12: "b", 22: "c"}
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "Paragraph %d text.", i)
		if ref, ok := refs[i]; ok {
			fmt.Fprintf(&b, "[^%s]", ref)
		}
		b.WriteString("\n\n")
	}
	b.WriteString("[^a]: First.\n\n[^b]: Second.\n\n[^c]: Third.\n")
	return document.Parse([]byte(b.String()))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, now: time.Unix(1_000, 0), rec: &reporter.Recorder{}}
	h.m = NewModel("notes/doc.md", sampleSource(), config.Terminal(), h.rec, func() time.Time { return h.now })
	require.NotNil(t, h.m.Init(), "the engine asks for its first frame")
	h.send(tea.WindowSizeMsg{Width: 80, Height: 23})
	h.frame()
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, _ := h.m.Update(msg)
	m, ok := next.(Model)
	require.True(h.t, ok)
	h.m = m
}

func (h *harness) key(s string) {
	h.t.Helper()
	switch s {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "down":
		h.send(tea.KeyMsg{Type: tea.KeyDown})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func (h *harness) frame() {
	h.now = h.now.Add(frameInterval)
	h.send(frameMsg{at: h.now})
}

func (h *harness) frames(n int) {
	for i := 0; i < n; i++ {
		h.frame()
	}
}

func (h *harness) offset() float64 { return h.m.Document().Viewport().Offset }

func TestModel_Layout(t *testing.T) {
	h := newHarness(t)

	vp := h.m.Document().Viewport()
	assert.InDelta(t, 20, vp.Height, 1e-9)
	assert.InDelta(t, 45, vp.ScrollMax, 1e-9, "65 rows in a 20 row body")

	snap := h.m.Snapshot()
	require.Len(t, snap.Markers, 3)
	assert.InDelta(t, 4.5, snap.Markers[0].Y, 1e-9)
	assert.Equal(t, 0, snap.Focused)

	focus := h.rec.Of(reporter.FocusChanged)
	require.Len(t, focus, 1)
	assert.Equal(t, "fn-1", focus[0].Focus.MarkerID)

	view := h.m.View()
	assert.Contains(t, view, "doc.md")
	assert.Contains(t, view, "Paragraph 0 text.")
}

func TestModel_ManualScroll(t *testing.T) {
	h := newHarness(t)

	h.key("j")
	h.key("j")
	assert.InDelta(t, 2, h.offset(), 1e-9)
	h.key("k")
	assert.InDelta(t, 1, h.offset(), 1e-9)

	h.key("G")
	h.frame()
	assert.InDelta(t, 45, h.offset(), 1e-9)
	assert.Equal(t, 2, h.m.Snapshot().Focused)

	h.key("g")
	h.frame()
	assert.Zero(t, h.offset())
	assert.Equal(t, 0, h.m.Snapshot().Focused)

	h.key("5")
	assert.InDelta(t, 22.5, h.offset(), 1e-9)
}

func TestModel_NextMarkerAnimates(t *testing.T) {
	h := newHarness(t)

	h.key("n")
	snap := h.m.Snapshot()
	assert.True(t, snap.Locked)
	assert.True(t, snap.Animating)
	assert.Equal(t, 1, snap.Focused)

	h.frames(15)
	snap = h.m.Snapshot()
	assert.False(t, snap.Animating)
	assert.Equal(t, 1, snap.Focused)
	assert.InDelta(t, 16.5, h.offset(), 1e-9)
	assert.Equal(t, "fn-2", h.rec.Of(reporter.FocusChanged)[len(h.rec.Of(reporter.FocusChanged))-1].Focus.MarkerID)

	h.key("p")
	h.frames(15)
	assert.Zero(t, h.offset())
	assert.Equal(t, 0, h.m.Snapshot().Focused)
}

func TestModel_OverscrollTug(t *testing.T) {
	h := newHarness(t)
	h.key("G")
	h.key("j")
	h.key("j")
	assert.Empty(t, h.rec.Of(reporter.OverscrollTug))
	h.key("j")
	assert.Len(t, h.rec.Of(reporter.OverscrollTug), 1)
	assert.Contains(t, h.m.View(), "end of document")
	assert.InDelta(t, 45, h.offset(), 1e-9)
}

func TestModel_QuoteSearch(t *testing.T) {
	h := newHarness(t)

	h.key("/")
	assert.Equal(t, ModeQuote, h.m.Mode())
	h.key("Paragraph 20 text")
	h.key("enter")
	assert.Equal(t, ModeRead, h.m.Mode())
	assert.True(t, h.m.Snapshot().Animating)
	h.frames(20)
	assert.InDelta(t, 32, h.offset(), 1e-9, "block 20 starts on row 40, eye-line 8 rows down")

	h.key("/")
	h.key("zzz qqq")
	h.key("enter")
	require.Len(t, h.rec.Of(reporter.QuoteNotFound), 1)
	assert.Contains(t, h.m.View(), "quote not found")

	h.key("/")
	h.key("esc")
	assert.Equal(t, ModeRead, h.m.Mode())
}

func TestModel_MarkerList(t *testing.T) {
	h := newHarness(t)

	h.key("m")
	assert.Equal(t, ModeMarkers, h.m.Mode())
	h.key("down")
	h.key("enter")
	assert.Equal(t, ModeRead, h.m.Mode())
	assert.Equal(t, "fn-2", h.m.Snapshot().Session.MarkerID)

	h.key("m")
	h.key("esc")
	assert.Equal(t, ModeRead, h.m.Mode())
}

func TestModel_Annotate(t *testing.T) {
	h := newHarness(t)

	h.key("a")
	snap := h.m.Snapshot()
	require.Len(t, snap.Markers, 4)
	assert.Equal(t, 4, snap.Markers[1].BlockIndex, "eye-line row 8 is paragraph 4")
	assert.Contains(t, h.m.View(), "annotated block 4")
	assert.Contains(t, h.m.Document().Blocks()[4].Text, document.Glyph(snap.Markers[1].Kind))

	b := h.m.Bookmark()
	require.Len(t, b.Annotations, 1)
	assert.Equal(t, snap.Markers[1].ID, b.Annotations[0].ID)
	assert.Equal(t, 4, b.Annotations[0].Block)
}

func TestModel_ResumeBookmark(t *testing.T) {
	now := time.Unix(1_000, 0)
	m := NewModel("notes/doc.md", sampleSource(), config.Terminal(), nil, func() time.Time { return now })
	m = m.Resume(storage.Bookmark{
		Fraction: 0.5,
		Annotations: []storage.Annotation{
			{ID: "saved", Block: 4},
			{ID: "stale", Block: 99},
		},
	})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 23})
	m = next.(Model)
	now = now.Add(frameInterval)
	next, _ = m.Update(frameMsg{at: now})
	m = next.(Model)

	assert.InDelta(t, 22.5, m.Document().Viewport().Offset, 1e-9)

	var ids []string
	for _, mk := range m.Snapshot().Markers {
		ids = append(ids, mk.ID)
	}
	assert.Equal(t, []string{"fn-1", "saved", "fn-2", "fn-3"}, ids)

	b := m.Bookmark()
	assert.InDelta(t, 0.5, b.Fraction, 1e-9)
	assert.Equal(t, []storage.Annotation{{ID: "saved", Block: 4}}, b.Annotations)
	assert.NotEmpty(t, b.MarkerID)

	// A later resize keeps the reader where they are.
	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 23})
	m = next.(Model)
	assert.InDelta(t, 22.5, m.Document().Viewport().Offset, 1e-9)
}

func TestModel_Resize(t *testing.T) {
	h := newHarness(t)
	h.send(tea.WindowSizeMsg{Width: 40, Height: 13})
	h.frame()

	assert.Equal(t, 38, h.m.Document().Width())
	vp := h.m.Document().Viewport()
	assert.InDelta(t, 10, vp.Height, 1e-9)
	assert.InDelta(t, 55, vp.ScrollMax, 1e-9)
	assert.InDelta(t, 0.5, h.m.Snapshot().Map.Stops[0], 1e-9, "eye-line is 4 rows down in a 10 row body")
}

func TestModel_Quit(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
}
