package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/engine"
	"github.com/ensigniasec/marginalia/internal/focus"
	"github.com/ensigniasec/marginalia/internal/geometry"
	"github.com/ensigniasec/marginalia/internal/storage"
)

// handleKey routes a key to the active pane.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	switch m.mode {
	case ModeMarkers:
		return m.handleMarkerKey(msg)
	case ModeQuote:
		return m.handleQuoteKey(msg)
	}
	return m.handleReadKey(msg)
}

//nolint:gocyclo,cyclop // flat key dispatch
func (m Model) handleReadKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	vp := m.r.doc.Viewport()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible

	case key.Matches(msg, m.keys.Escape):
		m.helpVisible = false
		m.r.notice = ""

	case key.Matches(msg, m.keys.Down):
		m.scrollBy(1)
	case key.Matches(msg, m.keys.Up):
		m.scrollBy(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(math.Max(vp.Height-1, 1))
	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(-math.Max(vp.Height-1, 1))
	case key.Matches(msg, m.keys.Home):
		m.scrollTo(0)
	case key.Matches(msg, m.keys.End):
		m.scrollTo(vp.ScrollMax)

	case key.Matches(msg, m.keys.Fraction):
		m.r.pull = 0
		m.r.eng.ScrollToFraction(float64(msg.Runes[0]-'0') / 10)

	case key.Matches(msg, m.keys.NextMark):
		m.stepMarker(1)
	case key.Matches(msg, m.keys.PrevMark):
		m.stepMarker(-1)
	case key.Matches(msg, m.keys.NextBlock):
		m.stepBlock(1)
	case key.Matches(msg, m.keys.PrevBlock):
		m.stepBlock(-1)

	case key.Matches(msg, m.keys.Annotate):
		m.annotate()

	case key.Matches(msg, m.keys.Markers):
		snap := m.r.eng.Snapshot()
		m.markers.SetItems(markerItems(snap.Markers, snap.Focused))
		if snap.Focused >= 0 {
			m.markers.Select(snap.Focused)
		}
		m.mode = ModeMarkers

	case key.Matches(msg, m.keys.Search):
		m.mode = ModeQuote
		m.prompt.SetValue("")
		return m, m.prompt.Focus()
	}
	return m, nil
}

func (m Model) handleMarkerKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	if m.markers.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Markers):
			m.mode = ModeRead
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			m.mode = ModeRead
			if it, ok := m.markers.SelectedItem().(markerItem); ok {
				m.command(m.r.eng.ScrollToMarker(it.ID))
			}
			return m, nil
		case msg.String() == "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.markers, cmd = m.markers.Update(msg)
	return m, cmd
}

func (m Model) handleQuoteKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = ModeRead
		m.prompt.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		m.mode = ModeRead
		m.prompt.Blur()
		q := strings.TrimSpace(m.prompt.Value())
		if q != "" {
			m.r.notice = ""
			m.command(m.r.eng.ScrollToQuote(q))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// scrollBy is a manual scroll of delta rows. Scrolling down at the bottom
// keeps pulling past the end so the engine can see the overscroll.
func (m *Model) scrollBy(delta float64) {
	vp := m.r.doc.Viewport()
	if delta > 0 && vp.Offset >= vp.ScrollMax {
		m.r.pull += delta
		m.r.eng.OnScroll(vp.ScrollMax + m.r.pull)
		return
	}
	m.scrollTo(vp.Offset + delta)
}

func (m *Model) scrollTo(offset float64) {
	m.r.pull = 0
	m.r.doc.ScrollTo(offset)
	m.r.eng.OnScroll(m.r.doc.Viewport().Offset)
}

// stepMarker animates to the marker dir positions away from the focused one.
func (m *Model) stepMarker(dir int) {
	snap := m.r.eng.Snapshot()
	n := len(snap.Markers)
	if n == 0 {
		m.r.notice = "no markers"
		return
	}
	next := 0
	if snap.Focused != focus.None {
		next = snap.Focused + dir
	} else if dir < 0 {
		next = n - 1
	}
	if next < 0 || next >= n {
		return
	}
	m.command(m.r.eng.ScrollToMarker(snap.Markers[next].ID))
}

// stepBlock animates to the block dir positions away from the current one.
func (m *Model) stepBlock(dir int) {
	snap := m.r.eng.Snapshot()
	m.command(m.r.eng.ScrollToBlock(snap.BlockIndex+dir, "", geometry.Annotation))
}

// annotate injects an annotation marker at the end of the current block.
func (m *Model) annotate() {
	snap := m.r.eng.Snapshot()
	id, err := m.r.eng.InjectMarker(geometry.Annotation, "", snap.BlockIndex)
	if err != nil {
		m.command(err)
		return
	}
	m.r.annotations = append(m.r.annotations, storage.Annotation{ID: id, Block: snap.BlockIndex})
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	m.r.notice = fmt.Sprintf("annotated block %d (%s)", snap.BlockIndex, id)
}

// command surfaces an inbound command error in the footer. Out-of-range
// requests at the document edges are ignored quietly.
func (m *Model) command(err error) {
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrBlockOutOfRange):
	case errors.Is(err, engine.ErrQuoteNotFound):
		// The quote-failed event already set the notice.
	default:
		logrus.WithError(err).Debug("reader command failed")
		m.r.notice = err.Error()
	}
}

// resize relays out the document for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	body := bodyHeight(height)
	m.r.doc.Resize(docWidth(m.r.cfg, width), float64(body))
	m.r.eng.Resize()
	m.view.Width = width
	m.view.Height = body
	m.progress.Width = width
	m.markers.SetSize(min(width, markerListMaxWidth), body)

	if b := m.r.resume; b != nil {
		m.r.resume = nil
		m.r.eng.ScrollToFraction(b.Fraction)
	}
}
