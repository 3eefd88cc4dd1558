package types

import "time"

// Clock provides the engine's view of time. The default implementation
// uses time.Now; tests inject their own to drive TTL and refresh windows
// deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the wall-clock implementation of Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
