package tui

import "time"

// Message types for Bubble Tea update loop.

// frameMsg delivers one engine frame.
type frameMsg struct{ at time.Time }

// timerMsg fires a scheduler timer by id.
type timerMsg struct{ id uint64 }
