// Package engine keeps reading focus in sync with a scrolling surface.
//
// An Engine is a single actor: host scroll notifications, inbound commands
// and scheduler callbacks must all arrive on the same goroutine. Scroll
// notifications only record the latest offset and request a frame; the
// frame runs one full pass (territory rebuild if needed, focus, block
// locator, reporter). Programmatic scrolls run through the actuator, which
// locks focus to the target marker until it lands or the reader takes over.
package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/actuator"
	"github.com/ensigniasec/marginalia/internal/config"
	"github.com/ensigniasec/marginalia/internal/focus"
	"github.com/ensigniasec/marginalia/internal/geometry"
	"github.com/ensigniasec/marginalia/internal/locator"
	"github.com/ensigniasec/marginalia/internal/quote"
	"github.com/ensigniasec/marginalia/internal/reporter"
	"github.com/ensigniasec/marginalia/internal/sched"
	"github.com/ensigniasec/marginalia/internal/territory"
)

// Errors returned by inbound commands. A command that fails leaves the
// engine untouched.
var (
	ErrUnknownMarker   = errors.New("unknown marker")
	ErrDuplicateMarker = errors.New("duplicate marker id")
	ErrBlockOutOfRange = errors.New("block index out of range")
	ErrQuoteNotFound   = errors.New("quote not found")
	ErrEmptyDocument   = errors.New("document has no blocks")
)

// Engine coordinates territory, focus, actuator and reporter over one surface.
type Engine struct {
	surface geometry.Surface
	sched   sched.Scheduler
	sink    reporter.Sink
	cfg     config.Config

	tracker *focus.Tracker
	act     *actuator.Actuator
	rep     *reporter.Reporter
	tug     *reporter.TugDetector

	state   *focus.State
	markers []geometry.Marker
	built   geometry.Viewport
	dirty   bool

	pending bool
	frame   uint64
	block   int
	locked  bool
}

// New returns an engine over surface. The first pass runs on the next frame.
func New(surface geometry.Surface, s sched.Scheduler, sink reporter.Sink, cfg config.Config) *Engine {
	if sink == nil {
		sink = reporter.Discard
	}
	e := &Engine{
		surface: surface,
		sched:   s,
		sink:    sink,
		cfg:     cfg,
		tracker: focus.NewTracker(cfg.Focus),
		rep:     reporter.New(cfg.Reporter, sink),
		tug:     reporter.NewTugDetector(cfg.Reporter.TugMargin),
		state:   focus.NewState(territory.Map{}, nil),
		dirty:   true,
		block:   -1,
	}
	e.act = actuator.New(cfg.Actuator, s, e.write)
	e.act.OnFinish(e.finished)
	e.requestPass()
	return e
}

// OnScroll is the host's scroll notification. offset is the raw offset and
// may run past the scroll range during elastic overscroll. NaN is dropped.
func (e *Engine) OnScroll(offset float64) {
	if math.IsNaN(offset) {
		return
	}
	if e.tug.Observe(offset, e.surface.Viewport().ScrollMax) {
		logrus.WithField("offset", offset).Debug("overscroll tug")
		e.sink.Emit(reporter.Event{Type: reporter.OverscrollTug, At: e.sched.Now()})
	}
	e.tracker.Observe(e.state, offset, e.sched.Now())
	if e.act.CheckDrift(offset) {
		// finished already ran a pass.
		return
	}
	e.requestPass()
}

// Resize tells the engine the surface geometry changed. The territory map is
// rebuilt on the next pass.
func (e *Engine) Resize() {
	e.dirty = true
	e.requestPass()
}

// ScrollToMarker animates to the marker's ideal stop with focus locked on it.
func (e *Engine) ScrollToMarker(id string) error {
	e.rebuild()
	idx := e.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownMarker, id)
	}
	target, _ := e.state.Map.Stop(idx)
	e.tracker.Lock(e.state, idx)
	e.locked = true
	e.start(target, id)
	return nil
}

// ScrollToBlock animates to put block index on the eye-line. When markerID
// names a known marker of the given kind, that marker holds focus during the
// scroll instead of whatever the block position would select.
func (e *Engine) ScrollToBlock(index int, markerID string, kind geometry.Kind) error {
	b, err := e.blockAt(index)
	if err != nil {
		return err
	}
	e.rebuild()
	lockID := ""
	if markerID != "" {
		if idx := e.indexOf(markerID); idx >= 0 && e.markers[idx].Kind == kind {
			e.tracker.Lock(e.state, idx)
			e.locked = true
			lockID = markerID
		} else {
			logrus.WithFields(logrus.Fields{"marker": markerID, "kind": kind}).Debug("scroll-to-block marker not found, using block")
		}
	}
	e.start(e.blockTarget(b), lockID)
	return nil
}

// ScrollToQuote searches block text for q and animates to the match. When
// nothing matches a quote-failed event is emitted and ErrQuoteNotFound
// returned.
func (e *Engine) ScrollToQuote(q string) error {
	blocks := e.surface.Blocks()
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	m, ok := quote.Find(texts, q)
	if !ok {
		e.sink.Emit(reporter.Event{Type: reporter.QuoteNotFound, At: e.sched.Now(), Quote: q})
		if len(blocks) == 0 {
			return fmt.Errorf("%w: %w", ErrQuoteNotFound, ErrEmptyDocument)
		}
		return ErrQuoteNotFound
	}
	logrus.WithFields(logrus.Fields{"block": blocks[m.Block].Index, "strategy": m.Strategy}).Debug("quote located")
	e.start(e.blockTarget(blocks[m.Block]), "")
	return nil
}

// ScrollToFraction jumps to fraction f of the scroll range without
// animating. Any active session is cancelled silently. NaN is ignored.
func (e *Engine) ScrollToFraction(f float64) {
	if math.IsNaN(f) {
		logrus.Debug("scroll-to-fraction ignored: NaN")
		return
	}
	e.jump(geometry.Clamp(f, 0, 1) * e.surface.Viewport().ScrollMax)
}

// ScrollToOffset jumps to offset without animating. Any active session is
// cancelled silently. NaN is ignored; infinities clamp to the range ends.
func (e *Engine) ScrollToOffset(offset float64) {
	if math.IsNaN(offset) {
		logrus.Debug("scroll-to-offset ignored: NaN")
		return
	}
	e.jump(offset)
}

// InjectMarker adds a marker at the end of block blockIndex and rebuilds the
// territory map. An empty id gets a generated one. It returns the id used.
func (e *Engine) InjectMarker(kind geometry.Kind, id string, blockIndex int) (string, error) {
	e.rebuild()
	if id == "" {
		id = uuid.NewString()
	} else if e.indexOf(id) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrDuplicateMarker, id)
	}
	if !e.surface.InsertMarker(kind, id, blockIndex) {
		return "", fmt.Errorf("%w: %d", ErrBlockOutOfRange, blockIndex)
	}
	e.dirty = true
	e.rebuild()
	e.requestPass()
	return id, nil
}

// Snapshot is a read-only view of engine state.
type Snapshot struct {
	// Focused is the index of the focused marker, or focus.None.
	Focused int
	Marker  geometry.Marker
	// BlockIndex is the block nearest the eye-line, or -1.
	BlockIndex int
	// Locked is set while a programmatic scroll holds focus on its marker.
	Locked    bool
	Animating bool
	Session   actuator.Session
	Viewport  geometry.Viewport
	Velocity  float64
	Map       territory.Map
	Markers   []geometry.Marker
}

// Snapshot returns the state as of the last pass.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Focused:    e.state.Focused,
		BlockIndex: e.block,
		Locked:     e.locked,
		Viewport:   e.surface.Viewport(),
		Velocity:   e.state.Velocity,
		Map:        e.state.Map,
		Markers:    e.markers,
	}
	if s.Focused >= 0 && s.Focused < len(e.markers) {
		s.Marker = e.markers[s.Focused]
	}
	s.Session, s.Animating = e.act.Current()
	return s
}

func (e *Engine) requestPass() {
	if e.pending {
		return
	}
	e.pending = true
	e.sched.RequestFrame(func(time.Time) {
		e.pending = false
		e.frame++
		e.pass(e.frame)
	})
}

// pass runs one full update. frame is zero for passes forced outside a frame.
func (e *Engine) pass(frame uint64) {
	e.rebuild()
	vp := e.surface.Viewport()

	idx := focus.None
	e.locked = false
	if s, ok := e.act.Current(); ok && s.Sticky && s.MarkerID != "" {
		if i := e.indexOf(s.MarkerID); i >= 0 {
			e.tracker.Lock(e.state, i)
			idx = i
			e.locked = true
		}
	}
	// Sessions without a marker (block, quote) leave focus to manual tracking.
	if !e.locked {
		idx = e.tracker.Update(e.state, vp.Offset, e.markers, vp.Height)
	}

	blocks := e.surface.Blocks()
	e.block = -1
	if i := locator.Nearest(blocks, locator.EyeLine(vp, e.cfg.Territory.EyeLineRatio)); i >= 0 {
		e.block = blocks[i].Index
	}

	p := reporter.Pass{
		Frame:        frame,
		Index:        idx,
		BlockIndex:   e.block,
		Viewport:     vp,
		Programmatic: e.act.Sticky(),
		At:           e.sched.Now(),
	}
	if idx >= 0 {
		p.Marker = e.markers[idx]
	}
	e.rep.Report(p)
}

// rebuild replaces the focus state when the marker set or viewport changed.
func (e *Engine) rebuild() {
	markers := e.surface.Markers()
	vp := e.surface.Viewport()
	changed := e.dirty ||
		len(markers) != len(e.markers) ||
		vp.Height != e.built.Height ||
		vp.ScrollMax != e.built.ScrollMax
	e.markers = markers
	if !changed {
		return
	}
	m := territory.Build(markers, vp, e.cfg.Territory)
	e.state = focus.NewState(m, e.state)
	e.built = vp
	e.dirty = false
	logrus.WithFields(logrus.Fields{
		"markers":    len(markers),
		"scroll_max": vp.ScrollMax,
		"spacing":    m.Spacing,
		"compressed": m.Compressed,
	}).Debug("territory map rebuilt")
}

func (e *Engine) indexOf(id string) int {
	for i, mk := range e.markers {
		if mk.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) blockAt(index int) (geometry.Block, error) {
	blocks := e.surface.Blocks()
	if len(blocks) == 0 {
		return geometry.Block{}, ErrEmptyDocument
	}
	for _, b := range blocks {
		if b.Index == index {
			return b, nil
		}
	}
	return geometry.Block{}, fmt.Errorf("%w: %d", ErrBlockOutOfRange, index)
}

// blockTarget is the offset that puts the top of b on the eye-line.
func (e *Engine) blockTarget(b geometry.Block) float64 {
	vp := e.surface.Viewport()
	return b.Top - vp.Height*e.cfg.Territory.EyeLineRatio
}

func (e *Engine) start(target float64, markerID string) {
	vp := e.surface.Viewport()
	target = geometry.Clamp(target, 0, vp.ScrollMax)
	e.act.Start(vp.Offset, target, markerID)
	e.requestPass()
}

func (e *Engine) jump(offset float64) {
	e.act.Cancel()
	e.locked = false
	e.surface.ScrollTo(offset)
	e.OnScroll(e.surface.Viewport().Offset)
}

// write is the actuator's scroll output. The surface reports the write back
// as a scroll notification the way a real viewport would.
func (e *Engine) write(offset float64) {
	e.surface.ScrollTo(offset)
	e.OnScroll(e.surface.Viewport().Offset)
}

// finished re-evaluates focus once a session completes or is broken, and
// always reports the resting state.
func (e *Engine) finished(s actuator.Session, reason actuator.Reason) {
	logrus.WithFields(logrus.Fields{"session": s.ID, "reason": reason, "marker": s.MarkerID}).Debug("programmatic scroll finished")
	e.rep.Forget()
	e.pass(0)
}
