package session

import "time"

// Clock abstracts timer creation so deadline behavior can be driven
// deterministically in tests. The default implementation delegates to the
// time package.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc schedules f to run after d elapses and returns a Timer
	// that can cancel it.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable deadline created by a Clock.
type Timer interface {
	// Stop cancels the timer. It reports whether the cancellation
	// happened before the timer fired.
	Stop() bool
}

type realClock struct{}

// NewRealClock returns a Clock backed by the time package.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
