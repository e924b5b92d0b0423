// Package schedule contains the pure scheduling math for the director's
// agenda: half-open interval overlap, working-hours slot generation, and
// recurrence expansion. Nothing in this package performs I/O.
package schedule

import "time"

// Interval is a half-open time range [Start, End). An appointment ending at
// 10:00 and another starting at 10:00 do not overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open intervals intersect.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
