// Package actuator runs animated programmatic scrolls.
//
// The actuator is a two-state machine: Idle, or Animating one Session. A
// session is entered only through Start and left through completion,
// watchdog expiry, a drift break, or a silent cancel. Every scheduled
// callback carries the id of the session that scheduled it and does nothing
// once that session is gone.
package actuator

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/sched"
)

// Options configures animation timing and manual-override detection.
type Options struct {
	// DriftTolerance is how far the observed offset may stray from the
	// animation's expected offset before the session is treated as
	// overridden.
	DriftTolerance float64 `yaml:"drift_tolerance" validate:"gt=0"`
	// StaleWrite is the longest the animation may go without writing an
	// expected offset before a scroll notification breaks the session.
	StaleWrite time.Duration `yaml:"stale_write" validate:"gt=0"`
	// MinDistance below which the scroll snaps without animating.
	MinDistance float64 `yaml:"min_distance" validate:"gte=0"`
	// DurationPerUnit scales animation time with distance.
	DurationPerUnit time.Duration `yaml:"duration_per_unit" validate:"gt=0"`
	MinDuration     time.Duration `yaml:"min_duration" validate:"gt=0"`
	MaxDuration     time.Duration `yaml:"max_duration" validate:"gtefield=MinDuration"`
	// WatchdogMargin is added to the animation duration to get the deadline
	// after which a session is force-completed.
	WatchdogMargin time.Duration `yaml:"watchdog_margin" validate:"gt=0"`
}

// Reason explains why a session ended.
type Reason int

const (
	Reached Reason = iota
	Watchdog
	Drift
	Stale
	Superseded
	Cancelled
)

func (r Reason) String() string {
	switch r {
	case Reached:
		return "reached"
	case Watchdog:
		return "watchdog"
	case Drift:
		return "drift"
	case Stale:
		return "stale"
	case Superseded:
		return "superseded"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session is one in-flight programmatic scroll.
type Session struct {
	ID        uint64
	MarkerID  string
	Start     float64
	Target    float64
	Expected  float64
	StartedAt time.Time
	LastWrite time.Time
	Duration  time.Duration
	Deadline  time.Time
	Sticky    bool
}

// Actuator owns at most one Session at a time.
type Actuator struct {
	opts     Options
	sched    sched.Scheduler
	scroll   func(offset float64)
	onFinish func(Session, Reason)

	nextID uint64
	cur    *Session
}

// New returns an idle actuator that moves the viewport through scroll.
func New(opts Options, s sched.Scheduler, scroll func(offset float64)) *Actuator {
	return &Actuator{opts: opts, sched: s, scroll: scroll}
}

// OnFinish registers fn to run when a session completes or is broken by a
// manual scroll. Silent cancellation and supersession do not call it.
func (a *Actuator) OnFinish(fn func(Session, Reason)) {
	a.onFinish = fn
}

// Active reports whether a session is in flight.
func (a *Actuator) Active() bool { return a.cur != nil }

// Sticky reports whether the active session suppresses manual focus tracking.
func (a *Actuator) Sticky() bool { return a.cur != nil && a.cur.Sticky }

// Current returns a copy of the active session.
func (a *Actuator) Current() (Session, bool) {
	if a.cur == nil {
		return Session{}, false
	}
	return *a.cur, true
}

// Start begins a scroll from the current offset to target, superseding any
// active session. It returns the new session id.
func (a *Actuator) Start(from, target float64, markerID string) uint64 {
	if a.cur != nil {
		a.drop(Superseded)
	}
	a.nextID++
	now := a.sched.Now()
	s := &Session{
		ID:        a.nextID,
		MarkerID:  markerID,
		Start:     from,
		Target:    target,
		Expected:  from,
		StartedAt: now,
		LastWrite: now,
		Sticky:    true,
	}
	a.cur = s
	log := logrus.WithFields(logrus.Fields{"session": s.ID, "from": from, "target": target, "marker": markerID})

	if math.Abs(target-from) < a.opts.MinDistance {
		log.Debug("scroll session snapped")
		s.Expected = target
		a.scroll(target)
		a.finish(s.ID, Reached)
		return s.ID
	}

	s.Duration = a.duration(math.Abs(target - from))
	s.Deadline = now.Add(s.Duration + a.opts.WatchdogMargin)
	log.WithField("duration", s.Duration).Debug("scroll session started")

	id := s.ID
	a.sched.RequestFrame(func(now time.Time) { a.tick(id, now) })
	a.sched.AfterFunc(s.Duration+a.opts.WatchdogMargin, func() { a.expire(id) })
	return id
}

// Cancel silently abandons the active session, if any.
func (a *Actuator) Cancel() {
	if a.cur != nil {
		a.drop(Cancelled)
	}
}

// CheckDrift compares an observed offset with the active sticky session.
// When the observed offset strays past the tolerance, or the animation has
// stopped writing, the session is broken and CheckDrift returns true.
func (a *Actuator) CheckDrift(actual float64) bool {
	s := a.cur
	if s == nil || !s.Sticky {
		return false
	}
	if math.Abs(actual-s.Expected) > a.opts.DriftTolerance {
		a.finish(s.ID, Drift)
		return true
	}
	if a.sched.Now().Sub(s.LastWrite) > a.opts.StaleWrite {
		a.finish(s.ID, Stale)
		return true
	}
	return false
}

func (a *Actuator) duration(dist float64) time.Duration {
	d := time.Duration(dist * float64(a.opts.DurationPerUnit))
	if d < a.opts.MinDuration {
		d = a.opts.MinDuration
	}
	if d > a.opts.MaxDuration {
		d = a.opts.MaxDuration
	}
	return d
}

func (a *Actuator) tick(id uint64, now time.Time) {
	s := a.cur
	if s == nil || s.ID != id {
		return
	}
	p := 1.0
	if s.Duration > 0 {
		p = math.Min(float64(now.Sub(s.StartedAt))/float64(s.Duration), 1)
	}
	y := s.Start + (s.Target-s.Start)*EaseOutCubic(p)
	s.Expected = y
	s.LastWrite = now
	a.scroll(y)

	if a.cur == nil || a.cur.ID != id {
		// The write itself was reported back as a scroll that broke the session.
		return
	}
	if p >= 1 {
		a.finish(id, Reached)
		return
	}
	a.sched.RequestFrame(func(now time.Time) { a.tick(id, now) })
}

func (a *Actuator) expire(id uint64) {
	s := a.cur
	if s == nil || s.ID != id {
		return
	}
	logrus.WithFields(logrus.Fields{"session": id, "target": s.Target}).Debug("scroll session watchdog fired")
	s.Expected = s.Target
	s.LastWrite = a.sched.Now()
	a.scroll(s.Target)
	if a.cur != nil && a.cur.ID == id {
		a.finish(id, Watchdog)
	}
}

func (a *Actuator) finish(id uint64, reason Reason) {
	s := a.cur
	if s == nil || s.ID != id {
		return
	}
	a.cur = nil
	logrus.WithFields(logrus.Fields{"session": id, "reason": reason}).Debug("scroll session ended")
	if a.onFinish != nil {
		a.onFinish(*s, reason)
	}
}

func (a *Actuator) drop(reason Reason) {
	logrus.WithFields(logrus.Fields{"session": a.cur.ID, "reason": reason}).Debug("scroll session dropped")
	a.cur = nil
}

// EaseOutCubic maps linear progress p in [0,1] to eased progress.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}
