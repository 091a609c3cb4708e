// Package sched abstracts per-frame callbacks and timers so the engine can run
// against a rendering loop or a virtual clock.
package sched

import (
	"sort"
	"time"
)

// Scheduler delivers frame callbacks and one-shot timers to a single actor.
// Callbacks never run concurrently with each other or with the caller.
type Scheduler interface {
	Now() time.Time
	// RequestFrame queues fn for the next frame.
	RequestFrame(fn func(now time.Time))
	// AfterFunc runs fn once after d has elapsed. There is no cancel; callers
	// guard stale callbacks themselves.
	AfterFunc(d time.Duration, fn func())
}

type timer struct {
	at  time.Time
	seq uint64
	fn  func()
}

// Manual is a fixed-timestep Scheduler driven by Step. It is used by tests
// and headless simulation.
type Manual struct {
	now       time.Time
	step      time.Duration
	frames    []func(time.Time)
	timers    []timer
	seq       uint64
	suspended bool
	frameNo   uint64
}

// DefaultStep is one frame at 60 Hz.
const DefaultStep = time.Second / 60

// NewManual returns a Manual starting at start. A non-positive step uses
// DefaultStep.
func NewManual(start time.Time, step time.Duration) *Manual {
	if step <= 0 {
		step = DefaultStep
	}
	return &Manual{now: start, step: step}
}

func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) RequestFrame(fn func(time.Time)) {
	m.frames = append(m.frames, fn)
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) {
	m.seq++
	m.timers = append(m.timers, timer{at: m.now.Add(d), seq: m.seq, fn: fn})
}

// Suspend stops frame delivery while timers keep firing, the way a
// backgrounded page stops painting.
func (m *Manual) Suspend(suspended bool) { m.suspended = suspended }

// PendingFrames reports how many frame callbacks are queued.
func (m *Manual) PendingFrames() int { return len(m.frames) }

// Frames reports how many frames have been delivered.
func (m *Manual) Frames() uint64 { return m.frameNo }

// Step advances the clock by one timestep, fires due timers in deadline
// order and then runs the frame callbacks queued before the step.
func (m *Manual) Step() {
	m.now = m.now.Add(m.step)
	m.fireTimers()
	if m.suspended || len(m.frames) == 0 {
		return
	}
	m.frameNo++
	frames := m.frames
	m.frames = nil
	for _, fn := range frames {
		fn(m.now)
	}
}

// Advance steps until at least d has elapsed.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for m.now.Before(end) {
		m.Step()
	}
}

// Sleep moves the clock by d without delivering frames, firing timers that
// fall due.
func (m *Manual) Sleep(d time.Duration) {
	m.now = m.now.Add(d)
	m.fireTimers()
}

func (m *Manual) fireTimers() {
	for len(m.timers) > 0 {
		sort.SliceStable(m.timers, func(i, j int) bool {
			if m.timers[i].at.Equal(m.timers[j].at) {
				return m.timers[i].seq < m.timers[j].seq
			}
			return m.timers[i].at.Before(m.timers[j].at)
		})
		if m.timers[0].at.After(m.now) {
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		t.fn()
	}
}
