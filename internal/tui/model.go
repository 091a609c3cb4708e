package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/document"
	"github.com/ensigniasec/marginalia/internal/engine"
	"github.com/ensigniasec/marginalia/internal/geometry"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/storage"
)

// Mode selects which pane receives keys.
type Mode int

const (
	ModeRead Mode = iota
	ModeMarkers
	ModeQuote
)

// reader is the state shared by every copy of the Model: the laid-out
// document, the engine driving it and what the engine last reported.
type reader struct {
	title string
	cfg   config.Config
	doc   *document.Document
	eng   *engine.Engine
	sched *teaScheduler

	focus  *reporter.FocusChange
	tugs   int
	notice string
	// pull is how far past the bottom the reader has kept scrolling.
	pull float64

	annotations []storage.Annotation
	// resume is applied once the terminal size is known.
	resume *storage.Bookmark
}

// onEvent records engine events for display.
func (r *reader) onEvent(e reporter.Event) {
	switch e.Type {
	case reporter.FocusChanged:
		r.focus = e.Focus
	case reporter.OverscrollTug:
		r.tugs++
		r.notice = "↧ end of document"
	case reporter.QuoteNotFound:
		r.notice = fmt.Sprintf("quote not found: %q", e.Quote)
	}
}

// Model is the root Bubble Tea model.
type Model struct {
	r *reader

	view        viewport.Model
	progress    progress.Model
	markers     list.Model
	prompt      textinput.Model
	mode        Mode
	helpVisible bool
	width       int
	height      int
	quitting    bool

	// keymap for consistent keybindings
	keys keyMap
}

// NewModel lays out src and starts an engine over it. Events go to the model
// and, when non-nil, to events. clock may be nil to use wall time.
func NewModel(title string, src *document.Source, cfg config.Config, events reporter.Sink, clock func() time.Time) Model { // nolint:ireturn
	r := &reader{title: title, cfg: cfg, sched: newTeaScheduler(clock)}
	r.doc = document.New(src, docWidth(cfg, defaultWidth), cfg.Layout.Gap)
	r.doc.Resize(docWidth(cfg, defaultWidth), float64(bodyHeight(defaultHeight)))

	sink := reporter.Sink(reporter.SinkFunc(r.onEvent))
	if events != nil {
		sink = reporter.Fanout{events, sink}
	}
	r.eng = engine.New(r.doc, r.sched, sink, cfg)

	p := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	ti := textinput.New()
	ti.Placeholder = "text to find"
	ti.Prompt = "/ "
	ti.CharLimit = quoteCharLimit
	ti.Width = quotePromptWidth

	m := Model{
		r:        r,
		view:     viewport.New(defaultWidth, bodyHeight(defaultHeight)),
		progress: p,
		markers:  newMarkerList(),
		prompt:   ti,
		mode:     ModeRead,
		width:    defaultWidth,
		height:   defaultHeight,
		keys:     newKeyMap(),
	}
	m.sync()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.r.sched.flush()
}

// Resume restores a saved bookmark: its annotations are added now and the
// scroll position is restored after the first layout at terminal size.
func (m Model) Resume(b storage.Bookmark) Model {
	for _, a := range b.Annotations {
		if _, err := m.r.eng.InjectMarker(geometry.Annotation, a.ID, a.Block); err != nil {
			logrus.WithError(err).WithField("id", a.ID).Debug("Dropping saved annotation")
			continue
		}
		m.r.annotations = append(m.r.annotations, a)
	}
	m.r.resume = &b
	m.sync()
	return m
}

// Bookmark captures the reading position and the annotations added so far.
func (m Model) Bookmark() storage.Bookmark {
	snap := m.r.eng.Snapshot()
	b := storage.Bookmark{Annotations: append([]storage.Annotation(nil), m.r.annotations...)}
	if vp := snap.Viewport; vp.ScrollMax > 0 {
		b.Fraction = geometry.Clamp(vp.Offset/vp.ScrollMax, 0, 1)
	}
	if snap.Focused >= 0 {
		b.MarkerID = snap.Marker.ID
	}
	return b
}

// Mode reports the active pane.
func (m Model) Mode() Mode { return m.mode }

// Snapshot exposes the engine state for hosts and tests.
func (m Model) Snapshot() engine.Snapshot { return m.r.eng.Snapshot() }

// Document returns the laid-out document.
func (m Model) Document() *document.Document { return m.r.doc }

// docWidth is the wrap width for a terminal of the given width.
func docWidth(cfg config.Config, termWidth int) int {
	w := termWidth - gutterWidth
	if cfg.Layout.Width > 0 && cfg.Layout.Width < w {
		w = cfg.Layout.Width
	}
	return max(w, 1)
}

func bodyHeight(termHeight int) int {
	return max(termHeight-chromeLines, bodyMinHeight)
}
