// Package clock abstracts time-based scheduling behind a small capability
// interface so that the engine's retry timers and reminder timers can be
// driven deterministically in tests.
//
// Production code uses [System]; tests use [Fake] and advance time manually
// to assert exact fire counts without real delays.
package clock

import "time"

// Timer is a handle to a scheduled callback. Stop cancels the callback if it
// has not fired yet.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer before it fired. Stopping an already-fired or
	// already-stopped timer is a no-op.
	Stop() bool
}

// Clock provides the current time and delayed callback scheduling.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run after d has elapsed. f runs at most once.
	// A non-positive d still schedules asynchronously on a [System] clock but
	// fires immediately on the next Advance of a [Fake] clock.
	AfterFunc(d time.Duration, f func()) Timer
}

// System is a Clock backed by the time package. The zero value is ready to use.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// AfterFunc schedules f via time.AfterFunc.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{t: time.AfterFunc(d, f)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) Stop() bool { return s.t.Stop() }
