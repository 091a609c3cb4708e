//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeaScheduler_Frames(t *testing.T) {
	s := newTeaScheduler(nil)
	assert.Nil(t, s.flush(), "nothing pending")

	var ran []time.Time
	s.RequestFrame(func(at time.Time) { ran = append(ran, at) })
	s.RequestFrame(func(at time.Time) { ran = append(ran, at) })

	cmd := s.flush()
	require.NotNil(t, cmd)
	assert.Nil(t, s.flush(), "one frame tick outstanding at a time")

	msg, ok := cmd().(frameMsg)
	require.True(t, ok)
	s.frame(msg.at)
	assert.Len(t, ran, 2)
	assert.Nil(t, s.flush())
}

func TestTeaScheduler_FrameQueuesLateRequests(t *testing.T) {
	s := newTeaScheduler(nil)
	calls := 0
	var again func(time.Time)
	again = func(time.Time) {
		calls++
		if calls < 2 {
			s.RequestFrame(again)
		}
	}
	s.RequestFrame(again)
	s.frame(time.Now())
	assert.Equal(t, 1, calls, "requests made during a frame wait for the next one")
	s.frame(time.Now())
	assert.Equal(t, 2, calls)
}

func TestTeaScheduler_Timers(t *testing.T) {
	now := time.Unix(100, 0)
	s := newTeaScheduler(func() time.Time { return now })
	assert.Equal(t, now, s.Now())

	fired := 0
	s.AfterFunc(time.Millisecond, func() { fired++ })
	cmd := s.flush()
	require.NotNil(t, cmd)

	msg, ok := cmd().(timerMsg)
	require.True(t, ok)
	s.fire(msg.id)
	s.fire(msg.id)
	assert.Equal(t, 1, fired)
}
