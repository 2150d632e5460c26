/*
Package report holds the read-side aggregations over ledger output.

PURPOSE:
  Every dashboard number (totals, monthly bars, department rankings, burn
  rate, weekday split, rolling averages) is a pure function of a Snapshot's
  summaries and daily rows plus a caller-supplied Filter. Nothing here
  mutates its input or fails on an empty selection: an empty filter result is
  a valid state and yields empty, non-nil output.

FILTER SEMANTICS:
  - Summaries match when start >= window.start AND end <= window.end, so a
    request straddling a window edge is excluded (it is not prorated).
  - Daily rows match when their date lies in the window.
  - A zero window bound is open on that side.
  - Department "" or "all" (any case) means every department.

SEE ALSO:
  - timeoff/ledger.go: Produces the rows aggregated here
  - api/handlers.go: Exposes each aggregation as an endpoint
*/
package report

import (
	"strings"

	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// AllDepartments is the department value meaning "no department filter".
const AllDepartments = "all"

// Filter selects a date window and optionally one department.
type Filter struct {
	Window     generic.Period
	Department string
}

// HasDepartment reports whether f narrows to one department.
func (f Filter) HasDepartment() bool {
	d := strings.TrimSpace(f.Department)
	return d != "" && !strings.EqualFold(d, AllDepartments) && d != "전체"
}

func (f Filter) matchDepartment(dept string) bool {
	return !f.HasDepartment() || dept == strings.TrimSpace(f.Department)
}

func (f Filter) onOrAfterStart(t generic.TimePoint) bool {
	return f.Window.Start.IsZero() || t.AfterOrEqual(f.Window.Start)
}

func (f Filter) onOrBeforeEnd(t generic.TimePoint) bool {
	return f.Window.End.IsZero() || t.BeforeOrEqual(f.Window.End)
}

// FilterSummaries returns the summaries fully inside the window.
func FilterSummaries(summaries []timeoff.Summary, f Filter) []timeoff.Summary {
	out := make([]timeoff.Summary, 0, len(summaries))
	for _, s := range summaries {
		if f.onOrAfterStart(s.StartDate) && f.onOrBeforeEnd(s.EndDate) && f.matchDepartment(s.Department) {
			out = append(out, s)
		}
	}
	return out
}

// FilterDaily returns the daily rows dated inside the window.
func FilterDaily(daily []timeoff.DailyAllocation, f Filter) []timeoff.DailyAllocation {
	out := make([]timeoff.DailyAllocation, 0, len(daily))
	for _, d := range daily {
		if f.onOrAfterStart(d.Date) && f.onOrBeforeEnd(d.Date) && f.matchDepartment(d.Department) {
			out = append(out, d)
		}
	}
	return out
}
