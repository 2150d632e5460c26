package timeoff

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// COLUMNS
// =============================================================================

type column int

const (
	colDocumentID column = iota
	colApplicant
	colDepartment
	colStartDate
	colEndDate
	colPoints
	colLeaveType
	colReason
	colRemaining
	colStatus
	numColumns
)

var columnLabels = [numColumns]string{
	colDocumentID: "document_id",
	colApplicant:  "applicant",
	colDepartment: "department",
	colStartDate:  "start_date",
	colEndDate:    "end_date",
	colPoints:     "requested_points",
	colLeaveType:  "leave_type",
	colReason:     "reason",
	colRemaining:  "remaining_points",
	colStatus:     "approval_status",
}

// headerAliases maps normalized header text to a column. The Korean labels
// are the ones the HR groupware export uses.
var headerAliases = map[string]column{
	"document_id":      colDocumentID,
	"document":         colDocumentID,
	"문서_번호":            colDocumentID,
	"applicant":        colApplicant,
	"name":             colApplicant,
	"기안자_이름":           colApplicant,
	"department":       colDepartment,
	"기안_부서":            colDepartment,
	"start_date":       colStartDate,
	"start":            colStartDate,
	"시작_날짜":            colStartDate,
	"end_date":         colEndDate,
	"end":              colEndDate,
	"종료_날짜":            colEndDate,
	"requested_points": colPoints,
	"points":           colPoints,
	"신청_포인트":           colPoints,
	"leave_type":       colLeaveType,
	"type":             colLeaveType,
	"휴가_종류":            colLeaveType,
	"reason":           colReason,
	"휴가_사유":            colReason,
	"remaining_points": colRemaining,
	"remaining":        colRemaining,
	"잔여_포인트":           colRemaining,
	"approval_status":  colStatus,
	"status":           colStatus,
	"승인_여부":            colStatus,
}

var requiredColumns = []column{colDocumentID, colApplicant, colStartDate, colEndDate, colPoints, colStatus}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// =============================================================================
// PARSER CONFIG
// =============================================================================

// ParserConfig controls row filtering and label normalization.
type ParserConfig struct {
	// ApprovedMarkers are the status values that admit a row. Compared
	// case-insensitively after trimming.
	ApprovedMarkers []string

	// DepartmentAliases renames departments (old name -> current name).
	DepartmentAliases map[string]string
}

// DefaultParserConfig accepts "approved" and the groupware's "완료" marker and
// folds the two renamed teams into their current names.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		ApprovedMarkers: []string{"approved", "완료"},
		DepartmentAliases: map[string]string{
			"기술개발팀":  "개발팀",
			"UI-UX팀": "퍼블리싱",
		},
	}
}

// Parser turns a CSV extract into approved LeaveRequests.
type Parser struct {
	approved map[string]struct{}
	aliases  map[string]string
}

func NewParser(cfg ParserConfig) *Parser {
	p := &Parser{
		approved: make(map[string]struct{}, len(cfg.ApprovedMarkers)),
		aliases:  make(map[string]string, len(cfg.DepartmentAliases)),
	}
	for _, m := range cfg.ApprovedMarkers {
		p.approved[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	for from, to := range cfg.DepartmentAliases {
		p.aliases[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return p
}

// =============================================================================
// PARSE
// =============================================================================

// ParseResult is the outcome of one parse.
type ParseResult struct {
	Requests []LeaveRequest
	Issues   []generic.RowError // rows excluded or degraded, never fatal
	Rows     int                // data rows read
	Rejected int                // rows dropped for a non-approved status
}

// Parse reads r as UTF-8 CSV with an optional byte-order mark.
// Only a missing header or a missing required column is fatal; bad rows are
// reported in ParseResult.Issues.
func (p *Parser) Parse(r io.Reader) (ParseResult, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, generic.ErrEmptyHeader
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read header: %w", err)
	}

	index, err := resolveColumns(header)
	if err != nil {
		return ParseResult{}, err
	}

	var result ParseResult
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				result.Issues = append(result.Issues, generic.RowError{Line: perr.Line, Err: perr.Err})
				continue
			}
			return result, fmt.Errorf("read rows: %w", err)
		}
		line, _ := cr.FieldPos(0)
		result.Rows++

		row := rowReader{record: record, index: index}
		if !p.isApproved(row.get(colStatus)) {
			result.Rejected++
			continue
		}

		req, issues, ok := p.buildRequest(line, row)
		result.Issues = append(result.Issues, issues...)
		if ok {
			result.Requests = append(result.Requests, req)
		}
	}
	return result, nil
}

func resolveColumns(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	for i, h := range header {
		if col, ok := headerAliases[normalizeHeader(h)]; ok && index[col] < 0 {
			index[col] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if index[col] < 0 {
			missing = append(missing, columnLabels[col])
		}
	}
	if len(missing) > 0 {
		return index, fmt.Errorf("%w: %s", generic.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

type rowReader struct {
	record []string
	index  [numColumns]int
}

// get returns the trimmed cell, or "" when the column or cell is absent.
func (r rowReader) get(col column) string {
	i := r.index[col]
	if i < 0 || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (p *Parser) isApproved(status string) bool {
	_, ok := p.approved[strings.ToLower(status)]
	return ok
}

// buildRequest maps one approved row. ok is false when the row must be
// excluded (non-numeric amounts). Bad dates degrade to zero and the ledger
// drops the request later.
func (p *Parser) buildRequest(line int, row rowReader) (LeaveRequest, []generic.RowError, bool) {
	var issues []generic.RowError
	ok := true

	amount := func(col column) generic.Amount {
		raw := row.get(col)
		if raw == "" {
			return generic.NewAmountFromInt(0, generic.UnitPoints)
		}
		a, err := generic.ParseAmount(raw, generic.UnitPoints)
		if err != nil {
			issues = append(issues, generic.RowError{Line: line, Column: columnLabels[col], Value: raw, Err: err})
			ok = false
		}
		return a
	}
	date := func(col column) generic.TimePoint {
		raw := row.get(col)
		tp, err := ParseDate(raw)
		if err != nil {
			issues = append(issues, generic.RowError{Line: line, Column: columnLabels[col], Value: raw, Err: err})
		}
		return tp
	}

	req := LeaveRequest{
		DocumentID:        DocumentID(row.get(colDocumentID)),
		Applicant:         generic.EntityID(row.get(colApplicant)),
		Department:        p.department(row.get(colDepartment)),
		StartDate:         date(colStartDate),
		EndDate:           date(colEndDate),
		RequestedPoints:   amount(colPoints),
		LeaveType:         ParseLeaveType(row.get(colLeaveType)),
		RemainingReported: amount(colRemaining),
		Status:            StatusApproved,
		Reason:            row.get(colReason),
	}
	return req, issues, ok
}

func (p *Parser) department(name string) string {
	if to, ok := p.aliases[name]; ok {
		return to
	}
	return name
}

// =============================================================================
// DATES
// =============================================================================

var errUnparsableDate = errors.New("unparsable date")

var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:04",
	"2006-1-2 15:04:05",
	"2006.1.2",
	"2006.1.2 15:04",
	"2006/1/2",
	"2006/1/2 15:04",
	time.RFC3339,
}

// ParseDate parses a day, ignoring a trailing parenthesised weekday such as
// "2024-03-05(Tue)" or "2024-03-05 (화)". An empty value yields the zero day
// and no error.
func ParseDate(s string) (generic.TimePoint, error) {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.TimePoint{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return generic.FromTime(t), nil
		}
	}
	return generic.TimePoint{}, errUnparsableDate
}
