package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// TOTALS
// =============================================================================

// Totals is the request count and point sum of a selection.
type Totals struct {
	Requests int
	Points   generic.Amount
}

func zeroPoints() generic.Amount { return generic.NewAmountFromInt(0, generic.UnitPoints) }

// ComputeTotals sums the selected summaries.
func ComputeTotals(summaries []timeoff.Summary) Totals {
	t := Totals{Points: zeroPoints()}
	for _, s := range summaries {
		t.Requests++
		t.Points = t.Points.Add(s.Points)
	}
	return t
}

// =============================================================================
// MONTHLY BY TYPE
// =============================================================================

// Mode chooses what a monthly bar measures.
type Mode string

const (
	ModeCount  Mode = "count"  // one per request
	ModePoints Mode = "points" // declared points
)

// ParseMode defaults to ModePoints.
func ParseMode(s string) Mode {
	if Mode(s) == ModeCount {
		return ModeCount
	}
	return ModePoints
}

// MonthlyPoint is one (month, leave type) bar.
type MonthlyPoint struct {
	Month     generic.TimePoint // first day of the month
	LeaveType timeoff.LeaveType
	Value     decimal.Decimal
}

// MonthlyByType buckets requests by the month they start in.
// Output is ordered by month, then leave type.
func MonthlyByType(summaries []timeoff.Summary, mode Mode) []MonthlyPoint {
	type key struct {
		month generic.TimePoint
		kind  timeoff.LeaveType
	}
	sums := make(map[key]decimal.Decimal)
	for _, s := range summaries {
		k := key{month: s.StartDate.MonthStart(), kind: s.LeaveType}
		v := s.Points.Value
		if mode == ModeCount {
			v = decimal.NewFromInt(1)
		}
		sums[k] = sums[k].Add(v)
	}

	out := make([]MonthlyPoint, 0, len(sums))
	for k, v := range sums {
		out = append(out, MonthlyPoint{Month: k.month, LeaveType: k.kind, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].LeaveType < out[j].LeaveType
	})
	return out
}

// =============================================================================
// BY DEPARTMENT
// =============================================================================

// DepartmentPoints is a department's point sum.
type DepartmentPoints struct {
	Department string
	Points     generic.Amount
	Requests   int
}

// ByDepartment sums points per department, ordered by department name.
func ByDepartment(summaries []timeoff.Summary) []DepartmentPoints {
	idx := make(map[string]int)
	out := make([]DepartmentPoints, 0)
	for _, s := range summaries {
		i, ok := idx[s.Department]
		if !ok {
			i = len(out)
			idx[s.Department] = i
			out = append(out, DepartmentPoints{Department: s.Department, Points: zeroPoints()})
		}
		out[i].Points = out[i].Points.Add(s.Points)
		out[i].Requests++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}

// =============================================================================
// ROLLING DAILY
// =============================================================================

// DefaultRollingWindow is the trailing window of RollingDaily.
const DefaultRollingWindow = 7

// DailyPoint is the point sum of one calendar day and its trailing mean.
type DailyPoint struct {
	Date    generic.TimePoint
	Points  generic.Amount
	Rolling float64
}

// RollingDaily sums daily allocations per date and attaches an n-point
// trailing mean over the dates present. The first n-1 dates average over
// however many points precede them.
func RollingDaily(daily []timeoff.DailyAllocation, n int) []DailyPoint {
	if n <= 0 {
		n = DefaultRollingWindow
	}

	sums := make(map[generic.TimePoint]generic.Amount)
	for _, d := range daily {
		cur, ok := sums[d.Date]
		if !ok {
			cur = zeroPoints()
		}
		sums[d.Date] = cur.Add(d.Points)
	}

	out := make([]DailyPoint, 0, len(sums))
	for date, pts := range sums {
		out = append(out, DailyPoint{Date: date, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	var window decimal.Decimal
	for i := range out {
		window = window.Add(out[i].Points.Value)
		if i >= n {
			window = window.Sub(out[i-n].Points.Value)
		}
		size := min(i+1, n)
		out[i].Rolling = window.Div(decimal.NewFromInt(int64(size))).InexactFloat64()
	}
	return out
}

// =============================================================================
// WEEKDAY SHARE
// =============================================================================

// WeekdayShare is the percentage of points booked on one weekday.
type WeekdayShare struct {
	Weekday time.Weekday
	Points  generic.Amount
	Percent float64
}

// WeekdayShares splits daily points by weekday, Monday first. Weekdays with
// no points are omitted; an empty selection yields an empty slice.
func WeekdayShares(daily []timeoff.DailyAllocation) []WeekdayShare {
	sums := make(map[time.Weekday]decimal.Decimal)
	total := decimal.Zero
	for _, d := range daily {
		wd := d.Date.Weekday()
		sums[wd] = sums[wd].Add(d.Points.Value)
		total = total.Add(d.Points.Value)
	}

	out := make([]WeekdayShare, 0, len(sums))
	if total.IsZero() {
		return out
	}
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		v, ok := sums[wd]
		if !ok {
			continue
		}
		out = append(out, WeekdayShare{
			Weekday: wd,
			Points:  generic.Amount{Value: v, Unit: generic.UnitPoints},
			Percent: percent(v, total),
		})
	}
	return out
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
