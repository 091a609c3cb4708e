package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// teaScheduler runs engine frames and timers as Bubble Tea messages so every
// callback executes inside Update, on the program's single goroutine.
type teaScheduler struct {
	clock   func() time.Time
	frames  []func(time.Time)
	ticking bool
	timers  map[uint64]func()
	nextID  uint64
	cmds    []tea.Cmd
}

func newTeaScheduler(clock func() time.Time) *teaScheduler {
	if clock == nil {
		clock = time.Now
	}
	return &teaScheduler{clock: clock, timers: make(map[uint64]func())}
}

func (s *teaScheduler) Now() time.Time { return s.clock() }

func (s *teaScheduler) RequestFrame(fn func(time.Time)) {
	s.frames = append(s.frames, fn)
}

func (s *teaScheduler) AfterFunc(d time.Duration, fn func()) {
	s.nextID++
	id := s.nextID
	s.timers[id] = fn
	s.cmds = append(s.cmds, tea.Tick(d, func(time.Time) tea.Msg { return timerMsg{id: id} }))
}

// frame runs the callbacks queued before this frame.
func (s *teaScheduler) frame(at time.Time) {
	s.ticking = false
	frames := s.frames
	s.frames = nil
	for _, fn := range frames {
		fn(at)
	}
}

func (s *teaScheduler) fire(id uint64) {
	fn, ok := s.timers[id]
	if !ok {
		return
	}
	delete(s.timers, id)
	fn()
}

// flush returns the commands needed to deliver pending timers and, when
// callbacks are queued, the next frame.
func (s *teaScheduler) flush() tea.Cmd {
	cmds := s.cmds
	s.cmds = nil
	if len(s.frames) > 0 && !s.ticking {
		s.ticking = true
		cmds = append(cmds, tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg{at: t} }))
	}
	return tea.Batch(cmds...)
}
