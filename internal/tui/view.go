package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/engine"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch {
	case m.helpVisible:
		body = lipgloss.NewStyle().Height(m.view.Height).Render(renderHelp(m))
	case m.mode == ModeMarkers:
		body = lipgloss.NewStyle().Height(m.view.Height).Render(m.markers.View())
	default:
		body = m.view.View()
	}

	snap := m.r.eng.Snapshot()
	var b strings.Builder
	b.WriteString(renderHeader(m, snap))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(fraction(snap)))
	b.WriteString("\n")
	b.WriteString(renderFooter(m))
	return b.String()
}

// sync pushes the document and scroll position into the viewport.
func (m *Model) sync() {
	snap := m.r.eng.Snapshot()
	m.view.SetContent(renderRows(m.r.doc.Rows(), snap))
	m.view.SetYOffset(int(math.Round(snap.Viewport.Offset)))
}

// renderRows draws the document with a gutter marking the current block and
// the rows that carry markers.
func renderRows(rows []document.Row, snap engine.Snapshot) string {
	markerRows := make(map[int]bool, len(snap.Markers))
	for _, mk := range snap.Markers {
		markerRows[int(mk.Top)] = true
	}
	focusedRow := -1
	if snap.Focused >= 0 {
		focusedRow = int(snap.Marker.Top)
	}

	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(focusColor)).Render("┃ ")
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(dimColor)).Render("• ")
	arrow := lipgloss.NewStyle().Foreground(lipgloss.Color(greenColor)).Bold(true).Render("▶ ")
	focusText := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	for i, row := range rows {
		text := row.Text
		switch {
		case i == focusedRow:
			b.WriteString(arrow)
			text = focusText.Render(text)
		case markerRows[i]:
			b.WriteString(dot)
		case row.Block >= 0 && row.Block == snap.BlockIndex:
			b.WriteString(bar)
		default:
			b.WriteString(strings.Repeat(" ", gutterWidth))
		}
		b.WriteString(text)
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func fraction(snap engine.Snapshot) float64 {
	if snap.Viewport.ScrollMax <= 0 {
		return 1
	}
	return math.Min(math.Max(snap.Viewport.Offset/snap.Viewport.ScrollMax, 0), 1)
}

func renderHeader(m Model, snap engine.Snapshot) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor)).Render(filepath.Base(m.r.title))

	var right string
	switch {
	case snap.Focused >= 0:
		right = fmt.Sprintf("%s %s · block %d", kindIcon(snap.Marker.Kind), snap.Marker.ID, snap.BlockIndex)
	case snap.BlockIndex >= 0:
		right = fmt.Sprintf("block %d", snap.BlockIndex)
	}
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch {
	case snap.Locked:
		right += badge.Foreground(lipgloss.Color(orangeColor)).Render("LOCKED")
	case snap.Animating:
		right += badge.Foreground(lipgloss.Color(focusColor)).Render("SCROLLING")
	}

	pad := m.width - lipgloss.Width(title) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return title + strings.Repeat(" ", pad) + right
}

func renderFooter(m Model) string {
	switch m.mode {
	case ModeQuote:
		return m.prompt.View()
	case ModeMarkers:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(grayColor)).Render("enter: jump • /: filter • esc/m: back")
	}
	if m.r.notice != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(redColor)).Render(m.r.notice)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(grayColor)).Render(
		"q: quit • j/k: scroll • n/p: markers • m: list • /: find • a: annotate • ?: help")
}

func renderHelp(m Model) string {
	border := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Foreground(lipgloss.Color(focusColor))
	bindings := []struct{ keys, desc string }{
		{m.keys.Down.Help().Key + " " + m.keys.Up.Help().Key, "scroll a row"},
		{m.keys.PageDown.Help().Key + " " + m.keys.PageUp.Help().Key, "scroll a page"},
		{m.keys.Home.Help().Key + " " + m.keys.End.Help().Key, "top / bottom"},
		{m.keys.Fraction.Help().Key, m.keys.Fraction.Help().Desc},
		{m.keys.NextMark.Help().Key + " " + m.keys.PrevMark.Help().Key, "next / previous marker"},
		{m.keys.NextBlock.Help().Key + " " + m.keys.PrevBlock.Help().Key, "next / previous block"},
		{m.keys.Markers.Help().Key, m.keys.Markers.Help().Desc},
		{m.keys.Search.Help().Key, m.keys.Search.Help().Desc},
		{m.keys.Annotate.Help().Key, m.keys.Annotate.Help().Desc},
		{m.keys.Help.Help().Key, m.keys.Help.Help().Desc},
		{m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc},
	}
	content := []string{"Help", ""}
	for _, kb := range bindings {
		content = append(content, fmt.Sprintf("%-16s %s", kb.keys, kb.desc))
	}
	return border.Render(strings.Join(content, "\n"))
}
