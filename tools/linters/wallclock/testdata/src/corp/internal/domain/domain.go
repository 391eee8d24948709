package domain

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC() //nolint:wallclock
}

func stamp() time.Time {
	return time.Now().UTC() // want "use the injected domain.Clock instead of time.Now\\(\\)"
}

func stampWith(c Clock) time.Time {
	return c.Now()
}
