package schedule

import (
	"errors"
	"sort"
	"time"
)

// Frequency of a recurrence rule.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// DefaultHardCap bounds expansion when the caller does not supply a cap.
const DefaultHardCap = 365

var (
	ErrInvalidFrequency = errors.New("schedule: invalid recurrence frequency")
	ErrInvalidInterval  = errors.New("schedule: recurrence interval must be positive")
	ErrAmbiguousEnd     = errors.New("schedule: recurrence cannot have both an end date and a count")
)

// Rule describes how a base appointment repeats.
//
// Exactly one termination applies: Until (inclusive), Count, or neither
// (unbounded, limited only by the expansion hard cap).
type Rule struct {
	Frequency  Frequency
	Interval   int            // every N units, >= 1
	ByWeekdays []time.Weekday // weekly only; empty means the base weekday
	ByMonthDay int            // monthly only; 0 means the base month day
	Until      *time.Time     // inclusive upper bound on occurrence starts
	Count      int            // exact number of occurrences; 0 means unbounded
}

// Validate checks the rule's internal consistency.
func (r *Rule) Validate() error {
	switch r.Frequency {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
	default:
		return ErrInvalidFrequency
	}
	if r.Interval < 1 {
		return ErrInvalidInterval
	}
	if r.Until != nil && r.Count > 0 {
		return ErrAmbiguousEnd
	}
	return nil
}

// Occurrence is one concrete instance generated from a rule.
type Occurrence struct {
	Start time.Time
	End   time.Time
	Index int
}

// Expand walks forward from baseStart producing the ordered, capped sequence
// of occurrences for the rule. A nil rule yields exactly the base occurrence.
//
// Expansion never checks occurrences for booking conflicts; that is the
// caller's job, once per occurrence, before each is persisted.
func Expand(baseStart time.Time, duration time.Duration, rule *Rule, hardCap int) ([]Occurrence, error) {
	if rule == nil {
		return []Occurrence{{Start: baseStart, End: baseStart.Add(duration), Index: 0}}, nil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if hardCap <= 0 {
		hardCap = DefaultHardCap
	}

	limit := hardCap
	if rule.Count > 0 && rule.Count < limit {
		limit = rule.Count
	}

	var out []Occurrence
	emit := func(start time.Time) bool {
		if start.Before(baseStart) {
			return true
		}
		if rule.Until != nil && start.After(*rule.Until) {
			return false
		}
		out = append(out, Occurrence{Start: start, End: start.Add(duration), Index: len(out)})
		return len(out) < limit
	}

	switch rule.Frequency {
	case FreqDaily:
		for start := baseStart; emit(start); start = start.AddDate(0, 0, rule.Interval) {
		}
	case FreqWeekly:
		expandWeekly(baseStart, rule, emit)
	case FreqMonthly:
		expandMonthly(baseStart, rule.Interval, rule.ByMonthDay, emit)
	case FreqYearly:
		expandYearly(baseStart, rule.Interval, emit)
	}

	return out, nil
}

// expandWeekly walks the valid weekdays of each week, then jumps interval
// weeks forward: the interval multiplies weeks, not raw day steps.
func expandWeekly(baseStart time.Time, rule *Rule, emit func(time.Time) bool) {
	days := append([]time.Weekday(nil), rule.ByWeekdays...)
	if len(days) == 0 {
		days = []time.Weekday{baseStart.Weekday()}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	// Week starts on Sunday (weekday 0).
	weekStart := baseStart.AddDate(0, 0, -int(baseStart.Weekday()))
	for {
		for _, wd := range days {
			if !emit(onDay(weekStart.AddDate(0, 0, int(wd)), baseStart)) {
				return
			}
		}
		weekStart = weekStart.AddDate(0, 0, 7*rule.Interval)
	}
}

func expandMonthly(baseStart time.Time, interval, monthDay int, emit func(time.Time) bool) {
	if monthDay == 0 {
		monthDay = baseStart.Day()
	}
	year, month, _ := baseStart.Date()
	for k := 0; ; k += interval {
		y, m := normalizeMonth(year, int(month)+k)
		day := monthDay
		if last := daysInMonth(y, m); day > last {
			day = last
		}
		candidate := time.Date(y, m, day,
			baseStart.Hour(), baseStart.Minute(), baseStart.Second(), baseStart.Nanosecond(),
			baseStart.Location())
		if !emit(candidate) {
			return
		}
	}
}

func expandYearly(baseStart time.Time, interval int, emit func(time.Time) bool) {
	year, month, day := baseStart.Date()
	for y := year; ; y += interval {
		d := day
		if last := daysInMonth(y, month); d > last {
			d = last // Feb 29 anchors clamp to Feb 28 off leap years
		}
		candidate := time.Date(y, month, d,
			baseStart.Hour(), baseStart.Minute(), baseStart.Second(), baseStart.Nanosecond(),
			baseStart.Location())
		if !emit(candidate) {
			return
		}
	}
}

// onDay keeps the date of dateSource and the clock time of template.
func onDay(dateSource, template time.Time) time.Time {
	y, m, d := dateSource.Date()
	return time.Date(y, m, d,
		template.Hour(), template.Minute(), template.Second(), template.Nanosecond(),
		template.Location())
}

func normalizeMonth(year, month int) (int, time.Month) {
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month <= 0 {
		month += 12
		year--
	}
	return year, time.Month(month)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
