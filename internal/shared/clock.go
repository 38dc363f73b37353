package shared

import "time"

// Clock supplies the current time to services. Injected everywhere so
// document numbering and timestamps are deterministic under test.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
