package crdt

import (
	"fmt"
	"strconv"
	"time"
)

// Version is a logical clock instant: a wall-clock timestamp in unix
// nanoseconds paired with a counter that breaks ties within the same
// nanosecond. Versions are totally ordered lexicographically.
type Version struct {
	Timestamp int64
	Counter   int64
}

// Before reports whether v is strictly older than other.
func (v Version) Before(other Version) bool {
	if v.Timestamp != other.Timestamp {
		return v.Timestamp < other.Timestamp
	}
	return v.Counter < other.Counter
}

// After reports whether v is strictly newer than other.
func (v Version) After(other Version) bool {
	return other.Before(v)
}

// IsZero reports whether v is the zero version, which sorts before every
// version a clock can produce.
func (v Version) IsZero() bool {
	return v.Timestamp == 0 && v.Counter == 0
}

// String renders the version as a fixed-width decimal so that string
// ordering equals version ordering. The store persists this form.
func (v Version) String() string {
	return fmt.Sprintf("%020d%010d", v.Timestamp, v.Counter)
}

// ParseVersion parses the fixed-width decimal form produced by String.
func ParseVersion(s string) (Version, error) {
	if len(s) != 30 {
		return Version{}, fmt.Errorf("crdt: malformed version %q: want 30 digits, got %d", s, len(s))
	}
	ts, err := strconv.ParseInt(s[:20], 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("crdt: malformed version timestamp %q: %w", s, err)
	}
	ctr, err := strconv.ParseInt(s[20:], 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("crdt: malformed version counter %q: %w", s, err)
	}
	return Version{Timestamp: ts, Counter: ctr}, nil
}

// Clock produces strictly increasing versions. It is not safe for
// concurrent use; each frame stream owns its own clock.
type Clock struct {
	current Version
	now     func() int64
}

// NewClock returns a clock whose next version is strictly greater than
// last. Pass the zero Version to start a fresh stream.
func NewClock(last Version) *Clock {
	return &Clock{
		current: last,
		now:     func() int64 { return time.Now().UnixNano() },
	}
}

// Next advances the clock and returns the new version. If the wall clock
// has moved past the current timestamp the counter resets, otherwise the
// counter increments so the result is always strictly greater than every
// version previously returned.
func (c *Clock) Next() Version {
	now := c.now()
	if now > c.current.Timestamp {
		c.current = Version{Timestamp: now}
	} else {
		c.current.Counter++
	}
	return c.current
}

// Current returns the last version handed out without advancing.
func (c *Clock) Current() Version {
	return c.current
}
