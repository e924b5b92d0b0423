package schedule

import (
	"fmt"
	"time"
)

// Slot is a candidate booking window within working hours, tagged with
// its availability against the day's existing bookings.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// MinutesOfDay converts an "HH:MM" clock string to minutes from midnight.
func MinutesOfDay(clock string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", clock)
	}
	return h*60 + m, nil
}

// GenerateSlots produces the candidate slots for one calendar day.
//
// day supplies the date and the business timezone; openMin and closeMin are
// minutes from midnight (e.g. 540 and 1080 for 09:00-18:00). Slots are laid
// out every step from opening time; a slot whose end would pass closing time
// is not generated. A slot is available iff it overlaps none of busy.
//
// The function is deterministic and side-effect free, so UI preview and
// commit flows can call it interchangeably.
func GenerateSlots(day time.Time, openMin, closeMin int, step time.Duration, busy []Interval) []Slot {
	if step <= 0 || closeMin <= openMin {
		return nil
	}

	y, m, d := day.Date()
	open := time.Date(y, m, d, 0, openMin, 0, 0, day.Location())
	close := time.Date(y, m, d, 0, closeMin, 0, 0, day.Location())

	slots := make([]Slot, 0, int(close.Sub(open)/step))
	for start := open; !start.Add(step).After(close); start = start.Add(step) {
		slot := Slot{Start: start, End: start.Add(step), Available: true}
		for _, iv := range busy {
			if Overlaps(Interval{Start: slot.Start, End: slot.End}, iv) {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots
}
