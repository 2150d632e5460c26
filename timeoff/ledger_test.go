package timeoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(year int, month time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(year, month, d)
}

func points(f float64) generic.Amount {
	return generic.NewAmount(f, generic.UnitPoints)
}

func request(doc, applicant string, start, end generic.TimePoint, pts, remaining float64) timeoff.LeaveRequest {
	return timeoff.LeaveRequest{
		DocumentID:        timeoff.DocumentID(doc),
		Applicant:         generic.EntityID(applicant),
		Department:        "개발팀",
		StartDate:         start,
		EndDate:           end,
		RequestedPoints:   points(pts),
		LeaveType:         timeoff.LeaveAnnual,
		RemainingReported: points(remaining),
		Status:            timeoff.StatusApproved,
		Reason:            "personal",
	}
}

func dailyFor(daily []timeoff.DailyAllocation, doc string) []timeoff.DailyAllocation {
	var out []timeoff.DailyAllocation
	for _, d := range daily {
		if d.DocumentID == timeoff.DocumentID(doc) {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// END-TO-END EXAMPLES
// =============================================================================

func TestAllocate_SingleWeek_OnlyDocumentCorrected(t *testing.T) {
	// GIVEN: Applicant A files one annual request Mon 2024-03-04 .. Fri 2024-03-08
	//        for 5 points, reporting 10 remaining
	// WHEN: Allocating
	// THEN: Remaining is corrected to 5 and each weekday gets 1 point

	req := request("1", "A", day(2024, time.March, 4), day(2024, time.March, 8), 5, 10)

	summaries, daily := timeoff.Allocate([]timeoff.LeaveRequest{req})

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.True(t, s.Points.EqualFloat(5))
	assert.Equal(t, timeoff.LeaveAnnual, s.LeaveType, "5 points is not a partial day")
	assert.True(t, s.Remaining.EqualFloat(5), "10 - 5 on the only document, got %s", s.Remaining)
	assert.True(t, s.Corrected)

	require.Len(t, daily, 5)
	for i, d := range daily {
		assert.Equal(t, day(2024, time.March, 4+i), d.Date)
		assert.True(t, d.Points.EqualFloat(1), "day %d got %s", i, d.Points)
		assert.Equal(t, generic.EntityID("A"), d.Applicant)
	}
}

func TestAllocate_TwoDocuments_OnlyLastCorrected(t *testing.T) {
	// GIVEN: Applicant B files doc 1 (2 pts, 8 remaining) and doc 2 (1 pt, 6 remaining)
	// WHEN: Allocating
	// THEN: Doc 1 keeps 8, doc 2 becomes 6 - 1 = 5

	reqs := []timeoff.LeaveRequest{
		request("1", "B", day(2024, time.April, 1), day(2024, time.April, 2), 2, 8),
		request("2", "B", day(2024, time.April, 10), day(2024, time.April, 10), 1, 6),
	}

	summaries, _ := timeoff.Allocate(reqs)

	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].Remaining.EqualFloat(8))
	assert.False(t, summaries[0].Corrected)
	assert.True(t, summaries[1].Remaining.EqualFloat(5))
	assert.True(t, summaries[1].Corrected)
}

// =============================================================================
// BUSINESS-DAY PROPERTIES
// =============================================================================

func TestAllocate_SingleWeekday_WholeCostOnThatDay(t *testing.T) {
	// GIVEN: One-day requests on each weekday of a week
	// WHEN: Allocating
	// THEN: Each produces exactly one daily row carrying the full cost

	for d := 4; d <= 8; d++ {
		req := request("1", "A", day(2024, time.March, d), day(2024, time.March, d), 0.5, 3)
		_, daily := timeoff.Allocate([]timeoff.LeaveRequest{req})

		require.Len(t, daily, 1)
		assert.True(t, daily[0].Points.EqualFloat(0.5))
	}
}

func TestAllocate_WeekendOnly_Dropped(t *testing.T) {
	// GIVEN: A request covering Sat 2024-03-09 .. Sun 2024-03-10
	// WHEN: Allocating
	// THEN: It appears in neither table

	req := request("1", "A", day(2024, time.March, 9), day(2024, time.March, 10), 2, 10)

	summaries, daily := timeoff.Allocate([]timeoff.LeaveRequest{req})

	assert.Empty(t, summaries)
	assert.Empty(t, daily)
}

func TestAllocate_SpanOverWeekend_SkipsSaturdaySunday(t *testing.T) {
	// GIVEN: Thu 2024-03-07 .. Tue 2024-03-12 for 4 points
	// WHEN: Allocating
	// THEN: Thu, Fri, Mon, Tue each get 1 point

	req := request("1", "A", day(2024, time.March, 7), day(2024, time.March, 12), 4, 10)

	_, daily := timeoff.Allocate([]timeoff.LeaveRequest{req})

	require.Len(t, daily, 4)
	var dates []generic.TimePoint
	for _, d := range daily {
		dates = append(dates, d.Date)
		assert.False(t, d.Date.IsWeekend())
		assert.True(t, d.Points.EqualFloat(1))
	}
	assert.Equal(t, []generic.TimePoint{
		day(2024, time.March, 7), day(2024, time.March, 8),
		day(2024, time.March, 11), day(2024, time.March, 12),
	}, dates)
}

func TestAllocate_DailySumEqualsSummaryPoints(t *testing.T) {
	// GIVEN: Requests whose cost does not divide evenly over their days
	// WHEN: Allocating
	// THEN: Each request's daily points sum back to its summary points

	reqs := []timeoff.LeaveRequest{
		request("1", "A", day(2024, time.March, 4), day(2024, time.March, 6), 1, 10),
		request("2", "A", day(2024, time.March, 11), day(2024, time.March, 17), 7, 10),
		request("3", "C", day(2024, time.May, 1), day(2024, time.May, 31), 2.5, 4),
	}

	summaries, daily := timeoff.Allocate(reqs)

	require.Len(t, summaries, 3)
	for _, s := range summaries {
		var sum float64
		for _, d := range dailyFor(daily, string(s.DocumentID)) {
			sum += d.Points.Float64()
		}
		assert.InDelta(t, s.Points.Float64(), sum, 1e-9, "doc %s", s.DocumentID)
	}
}

func TestAllocate_MissingDates_Skipped(t *testing.T) {
	// GIVEN: A request with no start date and a request with an inverted span
	// WHEN: Allocating
	// THEN: Both are silently dropped; a valid sibling survives

	missing := request("1", "A", generic.TimePoint{}, day(2024, time.March, 8), 1, 5)
	inverted := request("2", "A", day(2024, time.March, 8), day(2024, time.March, 4), 1, 5)
	valid := request("3", "A", day(2024, time.March, 4), day(2024, time.March, 4), 1, 5)

	summaries, daily := timeoff.Allocate([]timeoff.LeaveRequest{missing, inverted, valid})

	require.Len(t, summaries, 1)
	assert.Equal(t, timeoff.DocumentID("3"), summaries[0].DocumentID)
	assert.Len(t, daily, 1)
}

func TestAllocate_DroppedRequest_DoesNotReceiveCorrection(t *testing.T) {
	// GIVEN: Applicant's highest document spans only a weekend
	// WHEN: Allocating
	// THEN: The correction lands on the highest SURVIVING document

	reqs := []timeoff.LeaveRequest{
		request("1", "A", day(2024, time.March, 4), day(2024, time.March, 4), 1, 9),
		request("2", "A", day(2024, time.March, 9), day(2024, time.March, 10), 2, 7),
	}

	summaries, _ := timeoff.Allocate(reqs)

	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].Corrected)
	assert.True(t, summaries[0].Remaining.EqualFloat(8))
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestAllocate_CorrectionOnMaxDocumentID_NotInputOrder(t *testing.T) {
	// GIVEN: Documents arrive out of order (10, 9, 2) for one applicant
	// WHEN: Allocating
	// THEN: Doc 10 is corrected (numeric order, not lexical "9" > "10")

	reqs := []timeoff.LeaveRequest{
		request("10", "A", day(2024, time.June, 3), day(2024, time.June, 3), 1, 4),
		request("9", "A", day(2024, time.May, 6), day(2024, time.May, 6), 1, 5),
		request("2", "A", day(2024, time.April, 1), day(2024, time.April, 1), 1, 6),
	}

	summaries, _ := timeoff.Allocate(reqs)

	require.Len(t, summaries, 3)
	assert.True(t, summaries[0].Corrected)
	assert.True(t, summaries[0].Remaining.EqualFloat(3))
	assert.True(t, summaries[1].Remaining.EqualFloat(5))
	assert.True(t, summaries[2].Remaining.EqualFloat(6))
}

func TestAllocate_ExactlyOneCorrectionPerApplicant(t *testing.T) {
	// GIVEN: Three applicants with interleaved documents
	// WHEN: Allocating
	// THEN: Exactly one corrected row per applicant, the max document ID

	reqs := []timeoff.LeaveRequest{
		request("1", "A", day(2024, time.March, 4), day(2024, time.March, 4), 1, 10),
		request("2", "B", day(2024, time.March, 5), day(2024, time.March, 5), 1, 10),
		request("3", "A", day(2024, time.March, 6), day(2024, time.March, 6), 1, 9),
		request("4", "C", day(2024, time.March, 7), day(2024, time.March, 7), 1, 10),
		request("5", "B", day(2024, time.March, 8), day(2024, time.March, 8), 1, 9),
	}

	summaries, _ := timeoff.Allocate(reqs)

	corrected := map[generic.EntityID]timeoff.DocumentID{}
	for _, s := range summaries {
		if s.Corrected {
			_, dup := corrected[s.Applicant]
			assert.False(t, dup, "applicant %s corrected twice", s.Applicant)
			corrected[s.Applicant] = s.DocumentID
		} else {
			assert.True(t, s.Remaining.EqualFloat(10), "uncorrected rows keep their value")
		}
	}
	assert.Equal(t, map[generic.EntityID]timeoff.DocumentID{"A": "3", "B": "5", "C": "4"}, corrected)
}

func TestAllocate_EqualDocumentIDs_LaterInputWins(t *testing.T) {
	// GIVEN: Two rows share document ID 7
	// WHEN: Allocating
	// THEN: The later input row is treated as last (stable sort)

	reqs := []timeoff.LeaveRequest{
		request("7", "A", day(2024, time.March, 4), day(2024, time.March, 4), 1, 10),
		request("7", "A", day(2024, time.March, 5), day(2024, time.March, 5), 1, 9),
	}

	summaries, _ := timeoff.Allocate(reqs)

	require.Len(t, summaries, 2)
	assert.False(t, summaries[0].Corrected)
	assert.True(t, summaries[1].Corrected)
	assert.True(t, summaries[1].Remaining.EqualFloat(8))
}

func TestDocumentID_Less(t *testing.T) {
	assert.True(t, timeoff.DocumentID("9").Less("10"))
	assert.False(t, timeoff.DocumentID("10").Less("9"))
	assert.True(t, timeoff.DocumentID("DOC-10").Less("DOC-9"), "non-numeric ids compare lexically")
	assert.False(t, timeoff.DocumentID("5").Less("5"))

	// integers sort before every non-integer id, so 2 < 10 < 10a holds both ways
	assert.True(t, timeoff.DocumentID("10").Less("10a"))
	assert.True(t, timeoff.DocumentID("2").Less("10a"))
	assert.False(t, timeoff.DocumentID("10a").Less("2"))
}

func TestAllocate_MixedDocumentIDs_CorrectionIndependentOfInputOrder(t *testing.T) {
	// GIVEN: One applicant with document IDs 2, 10 and 10a
	// WHEN: Allocating every input permutation
	// THEN: The non-numeric 10a is always the corrected row

	byDoc := map[string]timeoff.LeaveRequest{
		"2":   request("2", "A", day(2024, time.March, 4), day(2024, time.March, 4), 1, 10),
		"10":  request("10", "A", day(2024, time.March, 5), day(2024, time.March, 5), 1, 9),
		"10a": request("10a", "A", day(2024, time.March, 6), day(2024, time.March, 6), 1, 8),
	}
	orders := [][]string{
		{"2", "10", "10a"}, {"2", "10a", "10"}, {"10", "2", "10a"},
		{"10", "10a", "2"}, {"10a", "2", "10"}, {"10a", "10", "2"},
	}

	for _, order := range orders {
		reqs := make([]timeoff.LeaveRequest, 0, len(order))
		for _, doc := range order {
			reqs = append(reqs, byDoc[doc])
		}

		summaries, _ := timeoff.Allocate(reqs)

		var corrected []timeoff.DocumentID
		for _, s := range summaries {
			if s.Corrected {
				corrected = append(corrected, s.DocumentID)
			}
		}
		assert.Equal(t, []timeoff.DocumentID{"10a"}, corrected, "input order %v", order)
	}
}

// =============================================================================
// RECLASSIFICATION
// =============================================================================

func TestAllocate_Reclassification(t *testing.T) {
	tests := []struct {
		name string
		kind timeoff.LeaveType
		pts  float64
		want timeoff.LeaveType
	}{
		{"quarter", timeoff.LeaveAnnual, 0.25, timeoff.LeaveQuarterDay},
		{"half", timeoff.LeaveAnnual, 0.5, timeoff.LeaveHalfDay},
		{"full day", timeoff.LeaveAnnual, 1, timeoff.LeaveAnnual},
		{"three quarters", timeoff.LeaveAnnual, 0.75, timeoff.LeaveAnnual},
		{"other type untouched", timeoff.LeaveType("경조사"), 0.5, timeoff.LeaveType("경조사")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("1", "A", day(2024, time.March, 4), day(2024, time.March, 4), tt.pts, 5)
			req.LeaveType = tt.kind

			summaries, daily := timeoff.Allocate([]timeoff.LeaveRequest{req})

			require.Len(t, summaries, 1)
			assert.Equal(t, tt.want, summaries[0].LeaveType)
			require.Len(t, daily, 1)
			assert.Equal(t, tt.want, daily[0].LeaveType, "daily rows carry the refined type")
		})
	}
}

func TestParseLeaveType_KoreanLabels(t *testing.T) {
	assert.Equal(t, timeoff.LeaveAnnual, timeoff.ParseLeaveType("연차"))
	assert.Equal(t, timeoff.LeaveHalfDay, timeoff.ParseLeaveType(" 반차 "))
	assert.Equal(t, timeoff.LeaveQuarterDay, timeoff.ParseLeaveType("반반차"))
	assert.Equal(t, timeoff.LeaveAnnual, timeoff.ParseLeaveType("Annual"))
	assert.Equal(t, timeoff.LeaveType("병가"), timeoff.ParseLeaveType("병가"))
}

// =============================================================================
// PURITY
// =============================================================================

func TestAllocate_Idempotent(t *testing.T) {
	// GIVEN: A mixed input
	// WHEN: Allocating twice
	// THEN: Outputs are identical and the input is untouched

	reqs := []timeoff.LeaveRequest{
		request("1", "A", day(2024, time.March, 4), day(2024, time.March, 8), 5, 10),
		request("2", "A", day(2024, time.March, 11), day(2024, time.March, 11), 0.5, 5),
		request("3", "B", day(2024, time.March, 9), day(2024, time.March, 10), 1, 3),
	}
	before := make([]timeoff.LeaveRequest, len(reqs))
	copy(before, reqs)

	s1, d1 := timeoff.Allocate(reqs)
	s2, d2 := timeoff.Allocate(reqs)

	assert.Equal(t, s1, s2)
	assert.Equal(t, d1, d2)
	assert.Equal(t, before, reqs)
}

func TestAllocate_EmptyInput(t *testing.T) {
	summaries, daily := timeoff.Allocate(nil)
	assert.Empty(t, summaries)
	assert.Empty(t, daily)
}

// =============================================================================
// FINAL BALANCES
// =============================================================================

func TestFinalBalances_OnePerApplicantSorted(t *testing.T) {
	reqs := []timeoff.LeaveRequest{
		request("1", "B", day(2024, time.March, 4), day(2024, time.March, 4), 1, 10),
		request("2", "A", day(2024, time.March, 5), day(2024, time.March, 5), 1, 7),
		request("3", "B", day(2024, time.March, 6), day(2024, time.March, 6), 2, 9),
	}
	summaries, _ := timeoff.Allocate(reqs)

	finals := timeoff.FinalBalances(summaries)

	require.Len(t, finals, 2)
	assert.Equal(t, generic.EntityID("A"), finals[0].Applicant)
	assert.True(t, finals[0].Remaining.EqualFloat(6))
	assert.Equal(t, generic.EntityID("B"), finals[1].Applicant)
	assert.True(t, finals[1].Remaining.EqualFloat(7))

	b, ok := timeoff.FinalBalance(summaries, "B")
	require.True(t, ok)
	assert.Equal(t, timeoff.DocumentID("3"), b.DocumentID)

	_, ok = timeoff.FinalBalance(summaries, "nobody")
	assert.False(t, ok)
}
