// Package timeoff implements the leave ledger: it turns approved leave
// requests into per-request summaries with reconciled balances and a
// per-business-day allocation table.
package timeoff

import (
	"strconv"
	"strings"

	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType is a leave category. The three point-based kinds are fixed;
// anything else (sick, family event, ...) is carried through verbatim.
type LeaveType string

const (
	LeaveAnnual     LeaveType = "annual"
	LeaveHalfDay    LeaveType = "half-day"
	LeaveQuarterDay LeaveType = "quarter-day"
)

// Labels used by the HR export.
var leaveTypeAliases = map[string]LeaveType{
	"annual":      LeaveAnnual,
	"연차":          LeaveAnnual,
	"half-day":    LeaveHalfDay,
	"반차":          LeaveHalfDay,
	"quarter-day": LeaveQuarterDay,
	"반반차":         LeaveQuarterDay,
}

// ParseLeaveType normalizes known labels and keeps unknown ones as-is.
func ParseLeaveType(s string) LeaveType {
	s = strings.TrimSpace(s)
	if t, ok := leaveTypeAliases[strings.ToLower(s)]; ok {
		return t
	}
	return LeaveType(s)
}

// IsAnnualFamily reports whether t draws from the annual allowance.
func (t LeaveType) IsAnnualFamily() bool {
	return t == LeaveAnnual || t == LeaveHalfDay || t == LeaveQuarterDay
}

// Refine reclassifies an annual request by its declared cost:
// 0.25 points is a quarter day, 0.5 a half day. Other types are untouched.
func (t LeaveType) Refine(points generic.Amount) LeaveType {
	if t != LeaveAnnual {
		return t
	}
	switch {
	case points.EqualFloat(0.25):
		return LeaveQuarterDay
	case points.EqualFloat(0.5):
		return LeaveHalfDay
	default:
		return LeaveAnnual
	}
}

// =============================================================================
// DOCUMENT ID
// =============================================================================

// DocumentID identifies one filed request. Within an applicant's history the
// ordering of document IDs stands in for filing order.
type DocumentID string

// Less is a total order: integer IDs come first by value, then every other
// ID lexically.
func (d DocumentID) Less(other DocumentID) bool {
	a, aNum := d.number()
	b, bNum := other.number()
	switch {
	case aNum && bNum:
		return a < b
	case aNum != bNum:
		return aNum
	default:
		return d < other
	}
}

func (d DocumentID) number() (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(d)), 10, 64)
	return n, err == nil
}

// =============================================================================
// STATUS
// =============================================================================

type ApprovalStatus string

const StatusApproved ApprovalStatus = "approved"

// =============================================================================
// LEDGER ROWS
// =============================================================================

// LeaveRequest is one approved row of the HR extract.
type LeaveRequest struct {
	DocumentID        DocumentID
	Applicant         generic.EntityID
	Department        string
	StartDate         generic.TimePoint // zero when missing or unparsable
	EndDate           generic.TimePoint
	RequestedPoints   generic.Amount
	LeaveType         LeaveType
	RemainingReported generic.Amount
	Status            ApprovalStatus
	Reason            string
}

// Span is the inclusive request period.
func (r LeaveRequest) Span() generic.Period {
	return generic.Period{Start: r.StartDate, End: r.EndDate}
}

// Summary is the per-request ledger row (one per surviving request).
type Summary struct {
	DocumentID DocumentID
	Applicant  generic.EntityID
	Department string
	StartDate  generic.TimePoint
	EndDate    generic.TimePoint
	Points     generic.Amount // declared cost, not split
	LeaveType  LeaveType      // refined
	Reason     string
	Remaining  generic.Amount // reported value; corrected on the applicant's last document
	Corrected  bool           // true on the one row whose Remaining was corrected
	Status     ApprovalStatus
}

// Span is the inclusive request period.
func (s Summary) Span() generic.Period {
	return generic.Period{Start: s.StartDate, End: s.EndDate}
}

// DailyAllocation is one business day of one request.
type DailyAllocation struct {
	DocumentID DocumentID
	Date       generic.TimePoint
	Points     generic.Amount // points / business-day count
	LeaveType  LeaveType
	Applicant  generic.EntityID
	Department string
}
