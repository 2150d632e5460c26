package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction
// =============================================================================

// TimePoint is a calendar day in UTC. Leave is booked in whole days, so the
// clock part of any parsed timestamp is dropped on construction.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day. The zero time stays zero.
func FromTime(t time.Time) TimePoint {
	if t.IsZero() {
		return TimePoint{}
	}
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return FromTime(time.Now())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddYears(n int) TimePoint  { return tp.AddMonths(12 * n) }

// AddMonths moves n calendar months, clamping the day to the target month's
// last day: May 31 minus one month is April 30, not May 1.
func (tp TimePoint) AddMonths(n int) TimePoint {
	first := tp.MonthStart().Time.AddDate(0, n, 0)
	last := EndOfMonth(first.Year(), first.Month()).Day()
	return NewTimePoint(first.Year(), first.Month(), min(tp.Day(), last))
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsWorkday() bool       { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

// MonthStart returns the first day of tp's month.
func (tp TimePoint) MonthStart() TimePoint { return StartOfMonth(tp.Year(), tp.Month()) }

func (tp TimePoint) String() string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format(DateLayout)
}

// DateLayout is the canonical wire format for days.
const DateLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return FromTime(t), nil
}

// =============================================================================
// BUSINESS DAYS
// =============================================================================

// BusinessDays lists the weekdays in [start, end], in order.
// A zero bound or an inverted range yields no days.
func BusinessDays(start, end TimePoint) []TimePoint {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}
	var days []TimePoint
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWorkday() {
			days = append(days, d)
		}
	}
	return days
}

// CountBusinessDays is len(BusinessDays(start, end)) without the allocation.
func CountBusinessDays(start, end TimePoint) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	n := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWorkday() {
			n++
		}
	}
	return n
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int { return int(to.Time.Sub(from.Time).Hours() / 24) }
func StartOfYear(year int) TimePoint     { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint       { return NewTimePoint(year, time.December, 31) }
func StartOfMonth(year int, month time.Month) TimePoint {
	return NewTimePoint(year, month, 1)
}
func EndOfMonth(year int, month time.Month) TimePoint {
	return FromTime(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
