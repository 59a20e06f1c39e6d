package sync

import "time"

// Clock abstracts the display client's local clock so drift behavior is
// testable with pinned instants. The local clock may be skewed from the
// server's; the engine's math only ever compares authoritative timestamps
// against this clock, which is exactly the skew the re-anchor bound accepts.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
