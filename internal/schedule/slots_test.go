package schedule

import (
	"testing"
	"time"
)

func TestGenerateSlotsBoundary(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// 09:00-18:00 at 60 minutes: last slot must start 17:00 and end 18:00.
	slots := GenerateSlots(day, 9*60, 18*60, time.Hour, nil)
	if len(slots) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(slots))
	}
	last := slots[len(slots)-1]
	if last.Start.Hour() != 17 || last.End.Hour() != 18 {
		t.Fatalf("last slot is %s-%s, want 17:00-18:00",
			last.Start.Format("15:04"), last.End.Format("15:04"))
	}
}

func TestGenerateSlotsUnevenClose(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// 09:00-17:30 at 60 minutes: a slot starting 17:00 would end past close.
	slots := GenerateSlots(day, 9*60, 17*60+30, time.Hour, nil)
	last := slots[len(slots)-1]
	if last.Start.Hour() != 16 {
		t.Fatalf("last slot starts %s, want 16:00", last.Start.Format("15:04"))
	}
}

func TestGenerateSlotsAvailability(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	busy := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)},
		// Busy block ending exactly at a slot start: no overlap.
		{Start: day.Add(13*time.Hour + 30*time.Minute), End: day.Add(14 * time.Hour)},
	}

	slots := GenerateSlots(day, 9*60, 18*60, time.Hour, busy)

	byStart := make(map[int]Slot, len(slots))
	for _, s := range slots {
		byStart[s.Start.Hour()] = s
	}

	if byStart[10].Available {
		t.Fatal("10:00 slot overlaps a busy interval, must be unavailable")
	}
	if !byStart[9].Available || !byStart[11].Available {
		t.Fatal("slots adjacent to a busy interval must stay available")
	}
	if !byStart[14].Available {
		t.Fatal("14:00 slot starts exactly when a busy block ends, must be available")
	}
	if byStart[13].Available {
		t.Fatal("13:00 slot overlaps 13:30-14:00 busy block, must be unavailable")
	}
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)}}

	first := GenerateSlots(day, 9*60, 12*60, 30*time.Minute, busy)
	second := GenerateSlots(day, 9*60, 12*60, 30*time.Minute, busy)

	if len(first) != len(second) {
		t.Fatalf("slot counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between identical calls", i)
		}
	}
}

func TestGenerateSlotsSubMinuteStep(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// 09:00-09:30 at 30 seconds: 60 slots, no truncation blowup.
	slots := GenerateSlots(day, 9*60, 9*60+30, 30*time.Second, nil)
	if len(slots) != 60 {
		t.Fatalf("expected 60 slots, got %d", len(slots))
	}
	if !slots[1].Start.Equal(day.Add(9*time.Hour + 30*time.Second)) {
		t.Fatalf("second slot starts %s, want 09:00:30", slots[1].Start.Format("15:04:05"))
	}
}

func TestGenerateSlotsDegenerateInput(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := GenerateSlots(day, 18*60, 9*60, time.Hour, nil); got != nil {
		t.Fatalf("inverted working hours should yield no slots, got %d", len(got))
	}
	if got := GenerateSlots(day, 9*60, 18*60, 0, nil); got != nil {
		t.Fatalf("zero granularity should yield no slots, got %d", len(got))
	}
}

func TestMinutesOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"18:30", 1110, false},
		{"00:00", 0, false},
		{"24:00", 0, true},
		{"bogus", 0, true},
	}
	for _, tc := range cases {
		got, err := MinutesOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("MinutesOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("MinutesOfDay(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("MinutesOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
