// Package clock abstracts wall-clock reads and deferred callbacks so that time-driven
// code can be exercised without waiting.
package clock

import "time"

// Timer is a pending deferred callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the callback
	// already ran or was already stopped; callers must not rely on it alone.
	Stop() bool
}

// Clock reads the wall clock and registers deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the process clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
