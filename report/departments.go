package report

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// DEPARTMENT USAGE RATIO
// =============================================================================

// DepartmentUsage is a department's share of its own annual-leave usage that
// falls inside a window, damped by headcount.
//
//	Ratio    = window points / all-time points * 100
//	Adjusted = Ratio / ln(1 + headcount)
type DepartmentUsage struct {
	Department string
	Headcount  int
	Selected   generic.Amount
	Total      generic.Amount
	Ratio      float64
	Adjusted   float64
}

// DepartmentUsages ranks every department by window usage. Only the annual
// family (annual, half-day, quarter-day) counts. The department filter is
// ignored so departments stay comparable. An empty window selection yields
// no rows.
func DepartmentUsages(summaries []timeoff.Summary, f Filter) []DepartmentUsage {
	inWindow := FilterSummaries(summaries, Filter{Window: f.Window})
	if len(inWindow) == 0 {
		return []DepartmentUsage{}
	}

	type acc struct {
		total, selected decimal.Decimal
		people          map[generic.EntityID]struct{}
	}
	byDept := make(map[string]*acc)
	get := func(dept string) *acc {
		a, ok := byDept[dept]
		if !ok {
			a = &acc{people: make(map[generic.EntityID]struct{})}
			byDept[dept] = a
		}
		return a
	}

	for _, s := range summaries {
		a := get(s.Department)
		a.people[s.Applicant] = struct{}{}
		if s.LeaveType.IsAnnualFamily() {
			a.total = a.total.Add(s.Points.Value)
		}
	}
	for _, s := range inWindow {
		if s.LeaveType.IsAnnualFamily() {
			a := get(s.Department)
			a.selected = a.selected.Add(s.Points.Value)
		}
	}

	out := make([]DepartmentUsage, 0, len(byDept))
	for dept, a := range byDept {
		u := DepartmentUsage{
			Department: dept,
			Headcount:  len(a.people),
			Selected:   generic.Amount{Value: a.selected, Unit: generic.UnitPoints},
			Total:      generic.Amount{Value: a.total, Unit: generic.UnitPoints},
			Ratio:      percent(a.selected, a.total),
		}
		if u.Headcount > 0 {
			u.Adjusted = u.Ratio / math.Log1p(float64(u.Headcount))
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}

// Highest returns the department with the largest adjusted ratio, or "" when
// there is none. Ties go to the first department by name.
func Highest(usages []DepartmentUsage) string {
	best := -1
	for i, u := range usages {
		if best < 0 || u.Adjusted > usages[best].Adjusted {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return usages[best].Department
}

// Lowest is Highest's counterpart.
func Lowest(usages []DepartmentUsage) string {
	best := -1
	for i, u := range usages {
		if best < 0 || u.Adjusted < usages[best].Adjusted {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return usages[best].Department
}

// =============================================================================
// BURN RATE
// =============================================================================

// BurnRate compares what a department's people used with what they have left.
//
//	Rate = avg used / (avg used + avg final remaining) * 100, capped at 100
type BurnRate struct {
	Department   string
	Headcount    int
	Used         generic.Amount
	Remaining    generic.Amount
	AvgUsed      float64
	AvgRemaining float64
	Rate         float64
}

// BurnRates is computed over the whole dataset. Usage counts the annual
// family; remaining is the sum of each applicant's final balance, assigned to
// the department on that final document.
func BurnRates(summaries []timeoff.Summary) []BurnRate {
	type acc struct {
		used, remaining decimal.Decimal
		people          map[generic.EntityID]struct{}
	}
	byDept := make(map[string]*acc)

	for _, s := range summaries {
		if !s.LeaveType.IsAnnualFamily() {
			continue
		}
		a, ok := byDept[s.Department]
		if !ok {
			a = &acc{people: make(map[generic.EntityID]struct{})}
			byDept[s.Department] = a
		}
		a.used = a.used.Add(s.Points.Value)
		a.people[s.Applicant] = struct{}{}
	}
	for _, final := range timeoff.FinalBalances(summaries) {
		if a, ok := byDept[final.Department]; ok {
			a.remaining = a.remaining.Add(final.Remaining.Value)
		}
	}

	out := make([]BurnRate, 0, len(byDept))
	for dept, a := range byDept {
		n := decimal.NewFromInt(int64(len(a.people)))
		avgUsed := a.used.Div(n)
		avgRemaining := a.remaining.Div(n)

		b := BurnRate{
			Department:   dept,
			Headcount:    len(a.people),
			Used:         generic.Amount{Value: a.used, Unit: generic.UnitPoints},
			Remaining:    generic.Amount{Value: a.remaining, Unit: generic.UnitPoints},
			AvgUsed:      avgUsed.InexactFloat64(),
			AvgRemaining: avgRemaining.InexactFloat64(),
			Rate:         percent(avgUsed, avgUsed.Add(avgRemaining)),
		}
		b.Rate = math.Min(b.Rate, 100)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}

// =============================================================================
// REMAINING BALANCES
// =============================================================================

// Remaining is one applicant's latest balance.
type Remaining struct {
	Applicant  generic.EntityID
	Department string
	DocumentID timeoff.DocumentID
	Remaining  generic.Amount
}

// LatestRemaining lists every applicant's final balance, by applicant. When
// a department filter is set only that department's applicants are listed.
func LatestRemaining(summaries []timeoff.Summary, f Filter) []Remaining {
	finals := timeoff.FinalBalances(summaries)
	out := make([]Remaining, 0, len(finals))
	for _, s := range finals {
		if !f.matchDepartment(s.Department) {
			continue
		}
		out = append(out, Remaining{
			Applicant:  s.Applicant,
			Department: s.Department,
			DocumentID: s.DocumentID,
			Remaining:  s.Remaining,
		})
	}
	return out
}

// =============================================================================
// DETAIL
// =============================================================================

// Detail returns the applicant's requests starting on day, earliest first,
// each showing the applicant's final balance rounded to two places. A zero
// day selects every request of the applicant. Unknown applicants yield no
// rows.
func Detail(summaries []timeoff.Summary, applicant generic.EntityID, day generic.TimePoint) []timeoff.Summary {
	final := zeroPoints()
	if s, ok := timeoff.FinalBalance(summaries, applicant); ok {
		final = s.Remaining
	}
	final = final.Round(2)

	out := make([]timeoff.Summary, 0)
	for _, s := range summaries {
		if s.Applicant != applicant {
			continue
		}
		if !day.IsZero() && !s.StartDate.Equal(day) {
			continue
		}
		s.Remaining = final
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

// Departments lists the distinct non-empty departments, sorted.
func Departments(summaries []timeoff.Summary) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range summaries {
		if s.Department == "" {
			continue
		}
		if _, ok := seen[s.Department]; ok {
			continue
		}
		seen[s.Department] = struct{}{}
		out = append(out, s.Department)
	}
	sort.Strings(out)
	return out
}
