package timer

import "time"

// Clock abstracts wall-clock reads so tests can drive the countdown with
// simulated time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns the real wall clock in UTC.
func SystemClock() Clock {
	return systemClock{}
}
