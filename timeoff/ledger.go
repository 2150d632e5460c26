/*
ledger.go - Leave point distribution and balance reconciliation

PURPOSE:
  Turns an ordered sequence of approved leave requests into two tables:
  one Summary per request and one DailyAllocation per business day the
  request covers. This is the only place leave points are split across days
  and the only place reported balances are corrected.

ALGORITHM:
  1. Drop every request whose [start, end] span holds no business day.
     Weekend-only spans and missing/unparsable dates both land here.
  2. Emit a Summary per surviving request with the unsplit points, the
     refined leave type and the request's own reported remaining balance.
  3. Reconcile: group summaries by applicant, stable-sort each group by
     document ID, and on the LAST row only set
         remaining = reported remaining - points
     Earlier rows keep whatever the source reported.
  4. Expand each summary into business days with
         points_for_day = points / business_day_count

KNOWN LIMITATION:
  The correction is one step on one row. Document IDs stand in for filing
  time; when they are not monotonic with real filing order the wrong row is
  corrected. Earlier stale balances are never repaired.

PURITY:
  Allocate has no side effects and does not mutate its input. Calling it
  twice on the same input yields identical tables.

SEE ALSO:
  - generic/time.go: BusinessDays
  - timeoff/source.go: Runs Allocate once per source version
*/
package timeoff

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// ALLOCATE
// =============================================================================

// Allocate computes the per-request summaries and the daily allocation table.
// Summaries keep input order; daily rows follow their summary, dates ascending.
func Allocate(requests []LeaveRequest) ([]Summary, []DailyAllocation) {
	summaries := make([]Summary, 0, len(requests))
	for _, req := range requests {
		if generic.CountBusinessDays(req.StartDate, req.EndDate) == 0 {
			continue
		}
		summaries = append(summaries, summarize(req))
	}

	reconcileBalances(summaries)

	daily := make([]DailyAllocation, 0, len(summaries))
	for _, s := range summaries {
		daily = append(daily, expandDaily(s)...)
	}
	return summaries, daily
}

func summarize(req LeaveRequest) Summary {
	return Summary{
		DocumentID: req.DocumentID,
		Applicant:  req.Applicant,
		Department: req.Department,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Points:     req.RequestedPoints,
		LeaveType:  req.LeaveType.Refine(req.RequestedPoints),
		Reason:     req.Reason,
		Remaining:  req.RemainingReported,
		Status:     req.Status,
	}
}

// =============================================================================
// BALANCE RECONCILIATION
// =============================================================================

// reconcileBalances corrects the remaining balance on each applicant's last
// document in place.
func reconcileBalances(summaries []Summary) {
	for _, idx := range lastDocumentIndex(summaries) {
		s := &summaries[idx]
		s.Remaining = s.Remaining.Sub(s.Points)
		s.Corrected = true
	}
}

// lastDocumentIndex maps each applicant to the index of their chronologically
// last summary. Among equal document IDs the later input row wins.
func lastDocumentIndex(summaries []Summary) map[generic.EntityID]int {
	groups := make(map[generic.EntityID][]int)
	for i, s := range summaries {
		groups[s.Applicant] = append(groups[s.Applicant], i)
	}

	last := make(map[generic.EntityID]int, len(groups))
	for applicant, idxs := range groups {
		sort.SliceStable(idxs, func(a, b int) bool {
			return summaries[idxs[a]].DocumentID.Less(summaries[idxs[b]].DocumentID)
		})
		last[applicant] = idxs[len(idxs)-1]
	}
	return last
}

// =============================================================================
// DAILY EXPANSION
// =============================================================================

func expandDaily(s Summary) []DailyAllocation {
	days := generic.BusinessDays(s.StartDate, s.EndDate)
	if len(days) == 0 {
		return nil
	}

	perDay := s.Points.Div(decimal.NewFromInt(int64(len(days))))
	rows := make([]DailyAllocation, 0, len(days))
	for _, day := range days {
		rows = append(rows, DailyAllocation{
			DocumentID: s.DocumentID,
			Date:       day,
			Points:     perDay,
			LeaveType:  s.LeaveType,
			Applicant:  s.Applicant,
			Department: s.Department,
		})
	}
	return rows
}

// =============================================================================
// QUERIES
// =============================================================================

// FinalBalances returns each applicant's last-document summary, the row that
// carries the corrected balance, sorted by applicant.
func FinalBalances(summaries []Summary) []Summary {
	out := make([]Summary, 0)
	for _, s := range summaries {
		if s.Corrected {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Applicant < out[j].Applicant })
	return out
}

// FinalBalance returns the applicant's corrected balance row.
func FinalBalance(summaries []Summary, applicant generic.EntityID) (Summary, bool) {
	for _, s := range summaries {
		if s.Applicant == applicant && s.Corrected {
			return s, true
		}
	}
	return Summary{}, false
}
