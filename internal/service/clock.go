package service

import "time"

// Clock stamps ledger entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// FixedClock reports the same instant on every call.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
