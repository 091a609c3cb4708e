package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/marginalia/internal/geometry"
)

// markerItem is the list item backing one marker row.
type markerItem struct {
	ID      string
	Kind    geometry.Kind
	Block   int
	Order   int
	Focused bool
}

// List item interface methods.
func (it markerItem) Title() string       { return it.ID }
func (it markerItem) Description() string { return "" }
func (it markerItem) FilterValue() string { return it.ID + " " + it.Kind.String() }

// markerDelegate renders markerItem rows with the kind and block right-justified.
type markerDelegate struct{}

func (d markerDelegate) Height() int                             { return 1 }
func (d markerDelegate) Spacing() int                            { return 0 }
func (d markerDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d markerDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(markerItem)
	if !ok {
		return
	}
	selected := index == m.Index()
	leftPrefix := "  "
	lineStyle := lipgloss.NewStyle()
	if selected {
		leftPrefix = "> "
		lineStyle = lineStyle.Foreground(lipgloss.Color(focusColor)).Bold(true)
	}

	left := fmt.Sprintf("%s%02d. %s %s", leftPrefix, it.Order+1, kindIcon(it.Kind), it.ID)
	right := fmt.Sprintf("block %d", it.Block)
	if it.Focused {
		right = lipgloss.NewStyle().Foreground(lipgloss.Color(greenColor)).Render("● ") + right
	}

	padding := m.Width() - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	_, _ = fmt.Fprint(w, lineStyle.Render(left+spaces(padding)+right))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(n).Render("")
}

func kindIcon(k geometry.Kind) string {
	switch k {
	case geometry.Annotation:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(orangeColor)).Render("✦")
	case geometry.Image:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(accentColor)).Render("▣")
	case geometry.Footnote:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(grayColor)).Render("†")
	default:
		return " "
	}
}

func newMarkerList() list.Model {
	lst := list.New([]list.Item{}, markerDelegate{}, 0, 0)
	lst.Title = "Markers"
	lst.SetShowStatusBar(true)
	lst.SetFilteringEnabled(true)
	lst.SetShowHelp(false)
	lst.SetShowPagination(true)
	return lst
}

// markerItems builds list items from the engine's marker set.
func markerItems(markers []geometry.Marker, focused int) []list.Item {
	items := make([]list.Item, 0, len(markers))
	for i, mk := range markers {
		items = append(items, markerItem{
			ID:      mk.ID,
			Kind:    mk.Kind,
			Block:   mk.BlockIndex,
			Order:   i,
			Focused: i == focused,
		})
	}
	return items
}
