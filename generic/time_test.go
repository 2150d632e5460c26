package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
)

func day(year int, month time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(year, month, d)
}

// =============================================================================
// BUSINESS DAYS
// =============================================================================

func TestBusinessDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end generic.TimePoint
		want       []string
	}{
		{"single weekday", day(2024, time.March, 5), day(2024, time.March, 5), []string{"2024-03-05"}},
		{"weekend only", day(2024, time.March, 9), day(2024, time.March, 10), nil},
		{"spans a weekend", day(2024, time.March, 8), day(2024, time.March, 11), []string{"2024-03-08", "2024-03-11"}},
		{"inverted", day(2024, time.March, 8), day(2024, time.March, 4), nil},
		{"zero start", generic.TimePoint{}, day(2024, time.March, 4), nil},
		{"zero end", day(2024, time.March, 4), generic.TimePoint{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := generic.BusinessDays(tt.start, tt.end)
			var got []string
			for _, d := range days {
				got = append(got, d.String())
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), generic.CountBusinessDays(tt.start, tt.end))
		})
	}
}

func TestBusinessDays_FullMonth(t *testing.T) {
	// March 2024 has 21 weekdays.
	assert.Equal(t, 21, generic.CountBusinessDays(
		generic.StartOfMonth(2024, time.March), generic.EndOfMonth(2024, time.March)))
}

// =============================================================================
// TIME POINT
// =============================================================================

func TestFromTime_TruncatesToDay(t *testing.T) {
	tp := generic.FromTime(time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC))
	assert.True(t, tp.Equal(day(2024, time.March, 5)))
	assert.True(t, generic.FromTime(time.Time{}).IsZero())
}

func TestParseDay(t *testing.T) {
	tp, err := generic.ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", tp.String())

	_, err = generic.ParseDay("2024-02-30")
	assert.Error(t, err)

	assert.Equal(t, "", generic.TimePoint{}.String())
}

func TestMonthHelpers(t *testing.T) {
	assert.Equal(t, "2024-02-29", generic.EndOfMonth(2024, time.February).String())
	assert.Equal(t, "2024-12-31", generic.EndOfMonth(2024, time.December).String())
	assert.Equal(t, "2024-03-01", day(2024, time.March, 17).MonthStart().String())
	assert.Equal(t, 4, generic.DaysBetween(day(2024, time.March, 4), day(2024, time.March, 8)))
}

func TestAddMonths_ClampsDay(t *testing.T) {
	tests := []struct {
		from generic.TimePoint
		n    int
		want string
	}{
		{day(2024, time.May, 31), -1, "2024-04-30"},
		{day(2024, time.March, 31), -1, "2024-02-29"},
		{day(2023, time.March, 31), -1, "2023-02-28"},
		{day(2024, time.January, 31), 1, "2024-02-29"},
		{day(2024, time.May, 7), -3, "2024-02-07"},
		{day(2024, time.December, 31), -12, "2023-12-31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.AddMonths(tt.n).String(), "%s %+d", tt.from, tt.n)
	}
	assert.Equal(t, "2025-02-28", day(2024, time.February, 29).AddYears(1).String())
}

// =============================================================================
// PERIOD
// =============================================================================

func TestPeriod_Validate(t *testing.T) {
	_, err := generic.NewPeriod(day(2024, time.March, 8), day(2024, time.March, 4))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = generic.NewPeriod(generic.TimePoint{}, day(2024, time.March, 4))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	p, err := generic.NewPeriod(day(2024, time.March, 4), day(2024, time.March, 4))
	require.NoError(t, err)
	assert.Len(t, p.Days(), 1)
}

func TestPeriod_ContainsAndCovers(t *testing.T) {
	march := generic.Period{Start: day(2024, time.March, 1), End: day(2024, time.March, 31)}

	assert.True(t, march.Contains(day(2024, time.March, 1)), "inclusive start")
	assert.True(t, march.Contains(day(2024, time.March, 31)), "inclusive end")
	assert.False(t, march.Contains(day(2024, time.April, 1)))

	assert.True(t, march.Covers(generic.Period{Start: day(2024, time.March, 4), End: day(2024, time.March, 8)}))
	assert.False(t, march.Covers(generic.Period{Start: day(2024, time.March, 29), End: day(2024, time.April, 2)}))

	assert.Len(t, march.Days(), 31)
	assert.Len(t, march.BusinessDays(), 21)
	assert.Equal(t, "[2024-03-01, 2024-03-31]", march.String())
}

func TestCalendarYear(t *testing.T) {
	y := generic.CalendarYear(2024)
	assert.Equal(t, "2024-01-01", y.Start.String())
	assert.Equal(t, "2024-12-31", y.End.String())
}

// =============================================================================
// AMOUNT
// =============================================================================

func TestAmount_DecimalArithmetic(t *testing.T) {
	// GIVEN: Points that do not add up exactly in binary floating point
	// WHEN: Summing and dividing in decimal
	// THEN: Results are exact

	a, err := generic.ParseAmount(" 0.1 ", generic.UnitPoints)
	require.NoError(t, err)
	b := generic.NewAmount(0.2, generic.UnitPoints)

	assert.True(t, a.Add(b).EqualFloat(0.3))
	assert.True(t, generic.SumAmounts([]generic.Amount{a, b, a}).EqualFloat(0.4))
	assert.True(t, generic.SumAmounts(nil).IsZero())

	third := generic.NewAmount(1, generic.UnitPoints).Div(generic.MustParseDecimal("3"))
	assert.True(t, third.Round(2).EqualFloat(0.33))

	_, err = generic.ParseAmount("abc", generic.UnitPoints)
	assert.Error(t, err)
	assert.True(t, generic.MustParseDecimal("abc").IsZero())
}
