package schedule

import (
	"testing"
	"time"
)

func TestExpandNilRule(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	occ, err := Expand(base, time.Hour, nil, 0)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occ) != 1 {
		t.Fatalf("expected single occurrence, got %d", len(occ))
	}
	if !occ[0].Start.Equal(base) || !occ[0].End.Equal(base.Add(time.Hour)) {
		t.Fatalf("occurrence %v does not match base appointment", occ[0])
	}
}

func TestExpandWeeklyCountTermination(t *testing.T) {
	// Monday 2 March 2026.
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rule := &Rule{
		Frequency:  FreqWeekly,
		Interval:   1,
		ByWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		Count:      6,
	}

	occ, err := Expand(base, 30*time.Minute, rule, 365)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occ) != 6 {
		t.Fatalf("expected exactly 6 occurrences, got %d", len(occ))
	}
	for i, o := range occ {
		switch o.Start.Weekday() {
		case time.Monday, time.Wednesday, time.Friday:
		default:
			t.Fatalf("occurrence %d lands on %s", i, o.Start.Weekday())
		}
		if i > 0 && !occ[i-1].Start.Before(o.Start) {
			t.Fatalf("occurrences out of chronological order at %d", i)
		}
		if o.Index != i {
			t.Fatalf("occurrence %d has index %d", i, o.Index)
		}
	}
	// Mon 2, Wed 4, Fri 6, Mon 9, Wed 11, Fri 13 March.
	wantDays := []int{2, 4, 6, 9, 11, 13}
	for i, want := range wantDays {
		if occ[i].Start.Day() != want {
			t.Fatalf("occurrence %d on day %d, want %d", i, occ[i].Start.Day(), want)
		}
	}
}

func TestExpandWeeklyIntervalJumpsWeeks(t *testing.T) {
	// Friday 6 March 2026 with interval 2: after Friday the walk must jump to
	// the Monday two weeks later, not two days later.
	base := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	rule := &Rule{
		Frequency:  FreqWeekly,
		Interval:   2,
		ByWeekdays: []time.Weekday{time.Monday, time.Friday},
		Count:      3,
	}

	occ, err := Expand(base, time.Hour, rule, 365)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	wantDates := []time.Time{
		time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC),  // Fri, base week
		time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), // Mon, two weeks on
		time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC), // Fri, same week
	}
	if len(occ) != len(wantDates) {
		t.Fatalf("expected %d occurrences, got %d", len(wantDates), len(occ))
	}
	for i, want := range wantDates {
		if !occ[i].Start.Equal(want) {
			t.Fatalf("occurrence %d = %s, want %s", i, occ[i].Start, want)
		}
	}
}

func TestExpandDailyDateTermination(t *testing.T) {
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	until := base.AddDate(0, 0, 10)
	rule := &Rule{Frequency: FreqDaily, Interval: 2, Until: &until}

	occ, err := Expand(base, time.Hour, rule, 365)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// Days 0,2,4,6,8,10; the end date itself is inclusive.
	if len(occ) != 6 {
		t.Fatalf("expected 6 occurrences, got %d", len(occ))
	}
	for i, o := range occ {
		if o.Start.After(until) {
			t.Fatalf("occurrence %d at %s is past the end date %s", i, o.Start, until)
		}
		if i > 0 {
			if gap := o.Start.Sub(occ[i-1].Start); gap != 48*time.Hour {
				t.Fatalf("gap between occurrences %d and %d is %s, want 48h", i-1, i, gap)
			}
		}
	}
}

func TestExpandMonthlyClamp(t *testing.T) {
	base := time.Date(2026, 1, 31, 11, 0, 0, 0, time.UTC)
	rule := &Rule{Frequency: FreqMonthly, Interval: 1, ByMonthDay: 31, Count: 4}

	occ, err := Expand(base, time.Hour, rule, 365)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []time.Time{
		time.Date(2026, 1, 31, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 11, 0, 0, 0, time.UTC), // 2026 is not a leap year
		time.Date(2026, 3, 31, 11, 0, 0, 0, time.UTC), // anchor day restored
		time.Date(2026, 4, 30, 11, 0, 0, 0, time.UTC),
	}
	if len(occ) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occ))
	}
	for i := range want {
		if !occ[i].Start.Equal(want[i]) {
			t.Fatalf("occurrence %d = %s, want %s", i, occ[i].Start, want[i])
		}
	}
}

func TestExpandMonthlyLeapFebruary(t *testing.T) {
	base := time.Date(2028, 1, 31, 11, 0, 0, 0, time.UTC)
	rule := &Rule{Frequency: FreqMonthly, Interval: 1, ByMonthDay: 31, Count: 2}

	occ, err := Expand(base, time.Hour, rule, 365)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	feb := occ[1].Start
	if feb.Month() != time.February || feb.Day() != 29 {
		t.Fatalf("leap-year February occurrence = %s, want Feb 29", feb)
	}
}

func TestExpandYearly(t *testing.T) {
	base := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	rule := &Rule{Frequency: FreqYearly, Interval: 1, Count: 3}

	occ, err := Expand(base, time.Hour, rule, 365)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for i, o := range occ {
		if o.Start.Year() != 2026+i || o.Start.Month() != time.June || o.Start.Day() != 15 {
			t.Fatalf("occurrence %d = %s", i, o.Start)
		}
	}
}

func TestExpandHardCap(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rule := &Rule{Frequency: FreqDaily, Interval: 1} // no termination

	occ, err := Expand(base, time.Hour, rule, 10)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occ) != 10 {
		t.Fatalf("hard cap ignored: got %d occurrences", len(occ))
	}
}

func TestExpandDeterministic(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rule := &Rule{Frequency: FreqWeekly, Interval: 1, ByWeekdays: []time.Weekday{time.Tuesday}, Count: 5}

	a, err := Expand(base, time.Hour, rule, 100)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	b, _ := Expand(base, time.Hour, rule, 100)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("occurrence %d differs between identical calls", i)
		}
	}
}

func TestRuleValidate(t *testing.T) {
	until := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		rule    Rule
		wantErr error
	}{
		{"valid weekly", Rule{Frequency: FreqWeekly, Interval: 1}, nil},
		{"bad frequency", Rule{Frequency: "hourly", Interval: 1}, ErrInvalidFrequency},
		{"zero interval", Rule{Frequency: FreqDaily}, ErrInvalidInterval},
		{"both terminations", Rule{Frequency: FreqDaily, Interval: 1, Until: &until, Count: 3}, ErrAmbiguousEnd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && err != tc.wantErr {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}
