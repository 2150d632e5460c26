/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the ledger and its report aggregations via a read-only REST API.
  Every handler loads the current Snapshot (memoized per CSV version), applies
  the query's filter and serializes one report.

ENDPOINTS:
  Ledger:
    GET    /api/summaries               Per-request summaries in the window
    GET    /api/daily                   Daily allocations in the window
    GET    /api/departments             Distinct departments
    GET    /api/window                  Resolve a window preset
    GET    /api/stats                   Totals plus load diagnostics

  Reports:
    GET    /api/reports/monthly         Points or requests by month and type
    GET    /api/reports/departments     Points by department
    GET    /api/reports/usage           Department usage ranking
    GET    /api/reports/rolling         Daily points with trailing mean
    GET    /api/reports/weekday         Share of points per weekday
    GET    /api/reports/burn-rate       Used vs remaining per department
    GET    /api/reports/remaining       Final balance per applicant
    GET    /api/applicants/{name}/detail  One applicant's requests

  Refresh:
    GET    /api/refresh-runs            Run history, newest first
    GET    /api/refresh-runs/{id}       One run
    GET    /api/refresh-runs/{id}/summaries  Ledger archived by a run
    POST   /api/refresh                 Refresh now

QUERY PARAMETERS:
  preset      all | 1m | 3m | 6m | 1y (window relative to the data)
  from, to    YYYY-MM-DD, override the preset's bounds
  department  one department; "" or "all" for every department
  mode        count | points (monthly report)
  window      trailing mean length (rolling report)
  date        YYYY-MM-DD start day (detail)
  limit       number of runs (refresh-runs)

ERROR HANDLING:
  - Missing CSV: 200 with "source_available": false and empty data
  - 400: Malformed query parameters
  - 404: Unknown refresh run
  - 500: Unreadable CSV, store failures

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
  - report/: The aggregations served here
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/metrics"
	"github.com/warp/leave-ledger/report"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Refresher runs a refresh on demand.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (generic.RefreshRun, error)
}

// LedgerArchive is implemented by run stores that can return archived ledgers.
type LedgerArchive interface {
	ArchivedSummaries(ctx context.Context, runID generic.RunID) ([]timeoff.Summary, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Source    *timeoff.Source
	Runs      generic.RunStore
	Refresher Refresher
	Logger    logger.Logger
	Metrics   *metrics.Manager
}

// NewHandler creates a handler. refresher may be nil, in which case
// POST /api/refresh answers 503.
func NewHandler(source *timeoff.Source, runs generic.RunStore, refresher Refresher, log logger.Logger, m *metrics.Manager) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Source:    source,
		Runs:      runs,
		Refresher: refresher,
		Logger:    log.Named("api"),
		Metrics:   m,
	}
}

// view is what a request sees of the ledger. A missing source is an
// available=false view with no rows.
type view struct {
	available bool
	snap      *timeoff.Snapshot
	summaries []timeoff.Summary
	daily     []timeoff.DailyAllocation
}

func (v view) version() string {
	if v.snap == nil {
		return ""
	}
	return v.snap.Version
}

// load returns the current view. On false the error response is written.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (view, bool) {
	snap, hit, err := h.Source.Load(r.Context())
	if errors.Is(err, generic.ErrSourceMissing) {
		return view{}, true
	}
	if err != nil {
		h.Logger.Error(r.Context(), "load ledger", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load leave data", err)
		return view{}, false
	}
	h.Metrics.ObserveCacheLookup(hit)
	return view{available: true, snap: snap, summaries: snap.Summaries, daily: snap.Daily}, true
}

// filterFromQuery resolves preset, from, to and department against the data.
func filterFromQuery(q url.Values, summaries []timeoff.Summary) (report.Filter, error) {
	preset, err := report.ParsePreset(q.Get("preset"))
	if err != nil {
		return report.Filter{}, err
	}
	window := report.Window(preset, summaries)

	if from := q.Get("from"); from != "" {
		d, err := timeoff.ParseDate(from)
		if err != nil || d.IsZero() {
			return report.Filter{}, fmt.Errorf("invalid from date %q", from)
		}
		window.Start = d
	}
	if to := q.Get("to"); to != "" {
		d, err := timeoff.ParseDate(to)
		if err != nil || d.IsZero() {
			return report.Filter{}, fmt.Errorf("invalid to date %q", to)
		}
		window.End = d
	}
	if err := window.Validate(); err != nil {
		return report.Filter{}, err
	}

	return report.Filter{Window: window, Department: q.Get("department")}, nil
}

// filtered loads the view and resolves the filter; on false the response
// has been written.
func (h *Handler) filtered(w http.ResponseWriter, r *http.Request) (view, report.Filter, bool) {
	v, ok := h.load(w, r)
	if !ok {
		return v, report.Filter{}, false
	}
	f, err := filterFromQuery(r.URL.Query(), v.summaries)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return v, report.Filter{}, false
	}
	return v, f, true
}

func (h *Handler) respond(w http.ResponseWriter, v view, f *report.Filter, data any) {
	resp := DataResponse{SourceAvailable: v.available, Version: v.version(), Data: data}
	if f != nil {
		resp.Window = toWindowDTO(f.Window)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListSummaries returns the summaries inside the window.
func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	h.respond(w, v, &f, toSummaryDTOs(report.FilterSummaries(v.summaries, f)))
}

// ListDaily returns the daily allocations inside the window.
func (h *Handler) ListDaily(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	h.respond(w, v, &f, toDailyDTOs(report.FilterDaily(v.daily, f)))
}

// ListDepartments returns every department in the data.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, v, nil, report.Departments(v.summaries))
}

// GetWindow resolves a preset to concrete dates.
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	preset, _ := report.ParsePreset(r.URL.Query().Get("preset"))
	h.respond(w, v, nil, WindowResponse{
		Preset: string(preset),
		Window: toWindowDTO(f.Window),
		Range:  toWindowDTO(report.DataRange(v.summaries)),
	})
}

// GetStats returns totals over the selection and load diagnostics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	selected := report.FilterSummaries(v.summaries, f)
	totals := report.ComputeTotals(selected)

	applicants := make(map[generic.EntityID]struct{})
	for _, s := range selected {
		applicants[s.Applicant] = struct{}{}
	}

	stats := StatsDTO{
		Requests:    totals.Requests,
		Points:      totals.Points.Float64(),
		Applicants:  len(applicants),
		Departments: len(report.Departments(selected)),
		Issues:      []RowIssueDTO{},
	}
	if v.snap != nil {
		loadedAt := v.snap.LoadedAt
		stats.Rows = v.snap.Rows
		stats.Rejected = v.snap.Rejected
		stats.Skipped = v.snap.Skipped()
		stats.LoadedAt = &loadedAt
		stats.Issues = toRowIssueDTOs(v.snap.Issues)
	}
	h.respond(w, v, &f, stats)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// MonthlyReport buckets the selection by month and leave type.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	mode := report.ParseMode(r.URL.Query().Get("mode"))
	rows := report.MonthlyByType(report.FilterSummaries(v.summaries, f), mode)
	h.respond(w, v, &f, toMonthlyDTOs(rows))
}

// DepartmentReport sums the selection per department.
func (h *Handler) DepartmentReport(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	rows := report.ByDepartment(report.FilterSummaries(v.summaries, f))
	h.respond(w, v, &f, toDepartmentPointsDTOs(rows))
}

// UsageReport ranks departments by headcount-adjusted window usage.
func (h *Handler) UsageReport(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	h.respond(w, v, &f, toUsageResponse(report.DepartmentUsages(v.summaries, f)))
}

// RollingReport returns daily points with a trailing mean.
func (h *Handler) RollingReport(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	n := report.DefaultRollingWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid rolling window", fmt.Errorf("window must be a positive integer, got %q", raw))
			return
		}
		n = parsed
	}
	rows := report.RollingDaily(report.FilterDaily(v.daily, f), n)
	h.respond(w, v, &f, toRollingDTOs(rows))
}

// WeekdayReport splits the selection's daily points by weekday.
func (h *Handler) WeekdayReport(w http.ResponseWriter, r *http.Request) {
	v, f, ok := h.filtered(w, r)
	if !ok {
		return
	}
	h.respond(w, v, &f, toWeekdayDTOs(report.WeekdayShares(report.FilterDaily(v.daily, f))))
}

// BurnRateReport is computed over the whole dataset; the window is ignored.
func (h *Handler) BurnRateReport(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, v, nil, toBurnRateDTOs(report.BurnRates(v.summaries)))
}

// RemainingReport lists final balances, optionally for one department.
func (h *Handler) RemainingReport(w http.ResponseWriter, r *http.Request) {
	v, ok := h.load(w, r)
	if !ok {
		return
	}
	f := report.Filter{Department: r.URL.Query().Get("department")}
	h.respond(w, v, nil, toRemainingDTOs(report.LatestRemaining(v.summaries, f)))
}

// ApplicantDetail returns one applicant's requests, optionally those
// starting on ?date=, each with the applicant's final balance.
func (h *Handler) ApplicantDetail(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil || strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid applicant", err)
		return
	}

	var day generic.TimePoint
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = timeoff.ParseDate(raw)
		if err != nil || day.IsZero() {
			writeError(w, http.StatusBadRequest, "Invalid date", fmt.Errorf("invalid date %q", raw))
			return
		}
	}

	v, ok := h.load(w, r)
	if !ok {
		return
	}
	rows := report.Detail(v.summaries, generic.EntityID(name), day)
	h.respond(w, v, nil, toSummaryDTOs(rows))
}

// =============================================================================
// REFRESH HANDLERS
// =============================================================================

// ListRefreshRuns returns the run history, newest first.
func (h *Handler) ListRefreshRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", fmt.Errorf("limit must be a non-negative integer, got %q", raw))
			return
		}
		limit = parsed
	}

	runs, err := h.Runs.ListRefreshRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refresh runs", err)
		return
	}
	writeJSON(w, http.StatusOK, toRefreshRunDTOs(runs))
}

// GetRefreshRun returns one run.
func (h *Handler) GetRefreshRun(w http.ResponseWriter, r *http.Request) {
	id := generic.RunID(chi.URLParam(r, "id"))
	run, err := h.Runs.GetRefreshRun(r.Context(), id)
	if err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Refresh run not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get refresh run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRefreshRunDTO(*run))
}

// GetArchivedSummaries returns the ledger a run archived. Runs that did not
// produce a new version have no archive and answer an empty list.
func (h *Handler) GetArchivedSummaries(w http.ResponseWriter, r *http.Request) {
	archive, ok := h.Runs.(LedgerArchive)
	if !ok {
		writeError(w, http.StatusNotFound, "Ledger archive not enabled", nil)
		return
	}

	id := generic.RunID(chi.URLParam(r, "id"))
	if _, err := h.Runs.GetRefreshRun(r.Context(), id); err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Refresh run not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get refresh run", err)
		return
	}

	summaries, err := archive.ArchivedSummaries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read archive", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTOs(summaries))
}

// TriggerRefresh runs a refresh now and returns its run record.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.Refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "Refresh not available", nil)
		return
	}
	run, err := h.Refresher.Refresh(r.Context(), TriggerManual)
	if err != nil {
		h.Logger.Error(r.Context(), "manual refresh", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRefreshRunDTO(run))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request has one, and the parameter is still escaped only in that case.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}
