package schedule

import (
	"testing"
	"time"
)

func iv(h1, m1, h2, m2 int) Interval {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return Interval{
		Start: day.Add(time.Duration(h1)*time.Hour + time.Duration(m1)*time.Minute),
		End:   day.Add(time.Duration(h2)*time.Hour + time.Duration(m2)*time.Minute),
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", iv(9, 0, 10, 0), iv(9, 0, 10, 0), true},
		{"partial overlap", iv(9, 0, 10, 0), iv(9, 30, 10, 30), true},
		{"containment", iv(9, 0, 12, 0), iv(10, 0, 11, 0), true},
		{"back to back", iv(9, 0, 10, 0), iv(10, 0, 11, 0), false},
		{"disjoint", iv(9, 0, 10, 0), iv(14, 0, 15, 0), false},
		{"one minute overlap", iv(9, 0, 10, 1), iv(10, 0, 11, 0), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tc.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntervalContains(t *testing.T) {
	window := iv(9, 0, 10, 0)
	if !window.Contains(window.Start) {
		t.Fatal("start of a half-open interval must be contained")
	}
	if window.Contains(window.End) {
		t.Fatal("end of a half-open interval must not be contained")
	}
}
