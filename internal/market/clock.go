package market

import "time"

// Clock is the time source shared by every capability.
type Clock interface {
	Now() time.Time
}

// UTCClock reads the wall clock in UTC.
type UTCClock struct{}

func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Useful for deterministic reports.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
