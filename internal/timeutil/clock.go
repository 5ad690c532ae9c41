package timeutil

import "time"

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Tests advance it with Advance.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
