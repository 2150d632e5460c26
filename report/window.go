package report

import (
	"fmt"

	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// =============================================================================
// WINDOW PRESETS
// =============================================================================

// Preset names a window relative to the newest request in the data.
type Preset string

const (
	PresetAll         Preset = "all"
	PresetLastMonth   Preset = "1m"
	PresetLast3Months Preset = "3m"
	PresetLast6Months Preset = "6m"
	PresetLastYear    Preset = "1y"
)

var presetMonths = map[Preset]int{
	PresetLastMonth:   1,
	PresetLast3Months: 3,
	PresetLast6Months: 6,
	PresetLastYear:    12,
}

// ParsePreset accepts the preset names; "" means all.
func ParsePreset(s string) (Preset, error) {
	p := Preset(s)
	if p == "" || p == PresetAll {
		return PresetAll, nil
	}
	if _, ok := presetMonths[p]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown window preset %q", s)
}

// DefaultYear is the window used before any request has been loaded.
const DefaultYear = 2024

// DataRange is the earliest start and latest end over the summaries, or the
// default calendar year when there are none.
func DataRange(summaries []timeoff.Summary) generic.Period {
	var r generic.Period
	for _, s := range summaries {
		if r.Start.IsZero() || s.StartDate.Before(r.Start) {
			r.Start = s.StartDate
		}
		if r.End.IsZero() || s.EndDate.After(r.End) {
			r.End = s.EndDate
		}
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return generic.CalendarYear(DefaultYear)
	}
	return r
}

// Window resolves a preset against the data: it ends at the latest end date
// and reaches back the preset's months, never before the earliest start.
// Without data every preset is the default year.
func Window(p Preset, summaries []timeoff.Summary) generic.Period {
	r := DataRange(summaries)
	months, ok := presetMonths[p]
	if !ok || len(summaries) == 0 {
		return r
	}
	start := r.End.AddMonths(-months)
	if start.Before(r.Start) {
		start = r.Start
	}
	return generic.Period{Start: start, End: r.End}
}
