package analysis

import (
	"time"

	"series-canon/src/analysis/core"
	"series-canon/src/models"
)

// -----------------------------------------------------------------------------

// Diagnose walks one partition's windows in start order and reports gaps,
// overlaps, cross-midnight spillover and coverage.
//
// For consecutive starts with delta = next - current:
//   - delta == duration is contiguous,
//   - delta > duration is one gap event (GapSeconds adds delta - duration),
//   - delta < duration, including duplicate starts, is one
//     overlap event.
//
// The input slice is not modified.
func Diagnose(windows []models.MWindowRecord, duration int64, dayStart time.Time, expected int64) models.MDiagnostics {
	sorted := make([]models.MWindowRecord, len(windows))
	copy(sorted, windows)
	SortByWindowStart(sorted)

	observed := int64(len(sorted))
	diag := models.MDiagnostics{
		WindowCount:         observed,
		ExpectedWindowCount: expected,
		CoveragePct:         core.CalculateCoveragePct(observed, expected),
		CoverageLabel:       core.CoverageLabel(observed, expected),
	}

	for i := 0; i+1 < len(sorted); i++ {
		delta := sorted[i+1].WindowStart.Unix() - sorted[i].WindowStart.Unix()
		switch {
		case delta == duration:
		case delta > duration:
			diag.GapCount++
			diag.GapSeconds += delta - duration
		default:
			diag.OverlapCount++
		}
	}

	if len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		width := last.WindowDuration
		if width <= 0 {
			width = duration
		}
		end := last.WindowStart.Unix() + width
		nextDay := DayStart(dayStart).Unix() + models.SecondsPerDay
		if end > nextDay {
			diag.SpilloverSecondsNextDay = end - nextDay
		}
	}

	return diag
}
