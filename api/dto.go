/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication. Points travel as JSON
  numbers (float64) even though the ledger keeps them as decimals; rounding
  happens only here, at the edge.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers around DTO lists

ENVELOPE:
  Every read endpoint answers with DataResponse. When the CSV extract is
  missing, SourceAvailable is false and Data holds the empty default of the
  endpoint (empty list, zero totals). Clients never see a 5xx for a missing
  file.

SEE ALSO:
  - handlers.go: Uses these types
  - timeoff/types.go: Domain types mapped here
*/
package api

import (
	"time"

	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/report"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// ENVELOPES
// =============================================================================

// DataResponse wraps every read endpoint's payload.
type DataResponse struct {
	SourceAvailable bool       `json:"source_available"`
	Version         string     `json:"version,omitempty"`
	Window          *WindowDTO `json:"window,omitempty"`
	Data            any        `json:"data"`
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WindowDTO is an inclusive date window.
type WindowDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func toWindowDTO(p generic.Period) *WindowDTO {
	return &WindowDTO{From: p.Start.String(), To: p.End.String()}
}

// =============================================================================
// LEDGER ROWS
// =============================================================================

// SummaryDTO is one PerRequestSummary.
type SummaryDTO struct {
	DocumentID string  `json:"document_id"`
	Applicant  string  `json:"applicant"`
	Department string  `json:"department"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Points     float64 `json:"points"`
	LeaveType  string  `json:"leave_type"`
	Reason     string  `json:"reason"`
	Remaining  float64 `json:"remaining_points"`
	Corrected  bool    `json:"corrected"`
	Status     string  `json:"status"`
}

func toSummaryDTOs(summaries []timeoff.Summary) []SummaryDTO {
	out := make([]SummaryDTO, len(summaries))
	for i, s := range summaries {
		out[i] = SummaryDTO{
			DocumentID: string(s.DocumentID),
			Applicant:  string(s.Applicant),
			Department: s.Department,
			StartDate:  s.StartDate.String(),
			EndDate:    s.EndDate.String(),
			Points:     s.Points.Float64(),
			LeaveType:  string(s.LeaveType),
			Reason:     s.Reason,
			Remaining:  s.Remaining.Float64(),
			Corrected:  s.Corrected,
			Status:     string(s.Status),
		}
	}
	return out
}

// DailyDTO is one DailyAllocation.
type DailyDTO struct {
	DocumentID string  `json:"document_id"`
	Date       string  `json:"date"`
	Points     float64 `json:"points"`
	LeaveType  string  `json:"leave_type"`
	Applicant  string  `json:"applicant"`
	Department string  `json:"department"`
}

func toDailyDTOs(daily []timeoff.DailyAllocation) []DailyDTO {
	out := make([]DailyDTO, len(daily))
	for i, d := range daily {
		out[i] = DailyDTO{
			DocumentID: string(d.DocumentID),
			Date:       d.Date.String(),
			Points:     d.Points.Float64(),
			LeaveType:  string(d.LeaveType),
			Applicant:  string(d.Applicant),
			Department: d.Department,
		}
	}
	return out
}

// =============================================================================
// STATS
// =============================================================================

// StatsDTO summarizes the selection and the load that produced it.
type StatsDTO struct {
	Requests    int           `json:"requests"`
	Points      float64       `json:"points"`
	Applicants  int           `json:"applicants"`
	Departments int           `json:"departments"`
	Rows        int           `json:"rows"`
	Rejected    int           `json:"rejected"`
	Skipped     int           `json:"skipped"`
	LoadedAt    *time.Time    `json:"loaded_at,omitempty"`
	Issues      []RowIssueDTO `json:"issues"`
}

// RowIssueDTO is a malformed CSV row.
type RowIssueDTO struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Error  string `json:"error"`
}

func toRowIssueDTOs(issues []generic.RowError) []RowIssueDTO {
	out := make([]RowIssueDTO, len(issues))
	for i, is := range issues {
		out[i] = RowIssueDTO{Line: is.Line, Column: is.Column, Value: is.Value}
		if is.Err != nil {
			out[i].Error = is.Err.Error()
		}
	}
	return out
}

// WindowResponse answers GET /api/window.
type WindowResponse struct {
	Preset string     `json:"preset"`
	Window *WindowDTO `json:"window"`
	Range  *WindowDTO `json:"range"`
}

// =============================================================================
// REPORTS
// =============================================================================

// MonthlyDTO is one (month, leave type) bar.
type MonthlyDTO struct {
	Month     string  `json:"month"` // YYYY-MM
	LeaveType string  `json:"leave_type"`
	Value     float64 `json:"value"`
}

func toMonthlyDTOs(points []report.MonthlyPoint) []MonthlyDTO {
	out := make([]MonthlyDTO, len(points))
	for i, p := range points {
		out[i] = MonthlyDTO{
			Month:     p.Month.Time.Format("2006-01"),
			LeaveType: string(p.LeaveType),
			Value:     p.Value.InexactFloat64(),
		}
	}
	return out
}

type DepartmentPointsDTO struct {
	Department string  `json:"department"`
	Points     float64 `json:"points"`
	Requests   int     `json:"requests"`
}

func toDepartmentPointsDTOs(rows []report.DepartmentPoints) []DepartmentPointsDTO {
	out := make([]DepartmentPointsDTO, len(rows))
	for i, r := range rows {
		out[i] = DepartmentPointsDTO{Department: r.Department, Points: r.Points.Float64(), Requests: r.Requests}
	}
	return out
}

type UsageDTO struct {
	Department string  `json:"department"`
	Headcount  int     `json:"headcount"`
	Selected   float64 `json:"selected_points"`
	Total      float64 `json:"total_points"`
	Ratio      float64 `json:"ratio"`
	Adjusted   float64 `json:"adjusted"`
}

// UsageResponse ranks departments and names the extremes.
type UsageResponse struct {
	Departments []UsageDTO `json:"departments"`
	Highest     string     `json:"highest,omitempty"`
	Lowest      string     `json:"lowest,omitempty"`
}

func toUsageResponse(usages []report.DepartmentUsage) UsageResponse {
	resp := UsageResponse{
		Departments: make([]UsageDTO, len(usages)),
		Highest:     report.Highest(usages),
		Lowest:      report.Lowest(usages),
	}
	for i, u := range usages {
		resp.Departments[i] = UsageDTO{
			Department: u.Department,
			Headcount:  u.Headcount,
			Selected:   u.Selected.Float64(),
			Total:      u.Total.Float64(),
			Ratio:      u.Ratio,
			Adjusted:   u.Adjusted,
		}
	}
	return resp
}

type RollingDTO struct {
	Date    string  `json:"date"`
	Points  float64 `json:"points"`
	Rolling float64 `json:"rolling"`
}

func toRollingDTOs(points []report.DailyPoint) []RollingDTO {
	out := make([]RollingDTO, len(points))
	for i, p := range points {
		out[i] = RollingDTO{Date: p.Date.String(), Points: p.Points.Float64(), Rolling: p.Rolling}
	}
	return out
}

type WeekdayDTO struct {
	Weekday string  `json:"weekday"`
	Points  float64 `json:"points"`
	Percent float64 `json:"percent"`
}

func toWeekdayDTOs(shares []report.WeekdayShare) []WeekdayDTO {
	out := make([]WeekdayDTO, len(shares))
	for i, s := range shares {
		out[i] = WeekdayDTO{Weekday: s.Weekday.String(), Points: s.Points.Float64(), Percent: s.Percent}
	}
	return out
}

type BurnRateDTO struct {
	Department   string  `json:"department"`
	Headcount    int     `json:"headcount"`
	Used         float64 `json:"used_points"`
	Remaining    float64 `json:"remaining_points"`
	AvgUsed      float64 `json:"avg_used"`
	AvgRemaining float64 `json:"avg_remaining"`
	Rate         float64 `json:"rate"`
}

func toBurnRateDTOs(rates []report.BurnRate) []BurnRateDTO {
	out := make([]BurnRateDTO, len(rates))
	for i, r := range rates {
		out[i] = BurnRateDTO{
			Department:   r.Department,
			Headcount:    r.Headcount,
			Used:         r.Used.Float64(),
			Remaining:    r.Remaining.Float64(),
			AvgUsed:      r.AvgUsed,
			AvgRemaining: r.AvgRemaining,
			Rate:         r.Rate,
		}
	}
	return out
}

type RemainingDTO struct {
	Applicant  string  `json:"applicant"`
	Department string  `json:"department"`
	DocumentID string  `json:"document_id"`
	Remaining  float64 `json:"remaining_points"`
}

func toRemainingDTOs(rows []report.Remaining) []RemainingDTO {
	out := make([]RemainingDTO, len(rows))
	for i, r := range rows {
		out[i] = RemainingDTO{
			Applicant:  string(r.Applicant),
			Department: r.Department,
			DocumentID: string(r.DocumentID),
			Remaining:  r.Remaining.Float64(),
		}
	}
	return out
}

// =============================================================================
// REFRESH RUNS
// =============================================================================

// RefreshRunDTO is one refresh cycle.
type RefreshRunDTO struct {
	ID           string    `json:"id"`
	Trigger      string    `json:"trigger"`
	Version      string    `json:"version,omitempty"`
	Status       string    `json:"status"`
	RequestCount int       `json:"request_count"`
	SummaryCount int       `json:"summary_count"`
	DailyCount   int       `json:"daily_count"`
	SkippedRows  int       `json:"skipped_rows"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMS   int64     `json:"duration_ms"`
}

func toRefreshRunDTO(r generic.RefreshRun) RefreshRunDTO {
	return RefreshRunDTO{
		ID:           string(r.ID),
		Trigger:      r.Trigger,
		Version:      r.Version,
		Status:       string(r.Status),
		RequestCount: r.RequestCount,
		SummaryCount: r.SummaryCount,
		DailyCount:   r.DailyCount,
		SkippedRows:  r.SkippedRows,
		Error:        r.Error,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		DurationMS:   r.Duration().Milliseconds(),
	}
}

func toRefreshRunDTOs(runs []generic.RefreshRun) []RefreshRunDTO {
	out := make([]RefreshRunDTO, len(runs))
	for i, r := range runs {
		out[i] = toRefreshRunDTO(r)
	}
	return out
}
