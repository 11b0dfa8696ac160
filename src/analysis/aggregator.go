package analysis

import (
	"fmt"
	"time"

	"series-canon/src/analysis/core"
	"series-canon/src/helpers"
	"series-canon/src/models"
	"series-canon/src/utils"
)

// DailyAggregator folds one partition's windows into a daily aggregate.
type DailyAggregator struct {
	Calendars *utils.CalendarRegistry
}

// -----------------------------------------------------------------------------

func NewDailyAggregator(calendars *utils.CalendarRegistry) *DailyAggregator {
	return &DailyAggregator{Calendars: calendars}
}

// -----------------------------------------------------------------------------

// Aggregate recomputes the full aggregate for partition from windows.
// Windows outside the partition's day, source or metric are ignored.
// A ConfigurationError is returned when the source's window duration cannot
// tile a day or the partition mixes durations.
func (a *DailyAggregator) Aggregate(
	partition models.MPartitionKey,
	windows []models.MWindowRecord,
	desc models.MSourceDescriptor,
) (models.MDailyAggregate, error) {

	dayStart, err := partition.DayStart()
	if err != nil {
		return models.MDailyAggregate{}, fmt.Errorf("partition %s: bad date: %w", partition, err)
	}
	dayEnd := dayStart.Add(time.Duration(models.SecondsPerDay) * time.Second)

	expected, err := ExpectedWindowCount(dayStart, desc)
	if err != nil {
		return models.MDailyAggregate{}, err
	}

	inDay := make([]models.MWindowRecord, 0, len(windows))
	values := make([]float64, 0, len(windows))
	for _, w := range windows {
		if w.Source != partition.Source || w.Metric != partition.Metric {
			continue
		}
		if w.WindowStart.Before(dayStart) || !w.WindowStart.Before(dayEnd) {
			continue
		}
		if w.WindowDuration != desc.WindowDuration {
			return models.MDailyAggregate{}, helpers.NewConfigurationError(
				"partition %s: window at %s has duration %ds, source is configured for %ds",
				partition, w.WindowStart.Format(time.RFC3339), w.WindowDuration, desc.WindowDuration)
		}
		inDay = append(inDay, w)
		values = append(values, w.Value)
	}

	summary := core.Summarize(values)
	diag := Diagnose(inDay, desc.WindowDuration, dayStart, expected)

	agg := models.MDailyAggregate{
		Date:                    partition.Date,
		Source:                  partition.Source,
		Metric:                  partition.Metric,
		Mean:                    summary.Mean,
		Min:                     summary.Min,
		Max:                     summary.Max,
		StdDev:                  summary.StdDev,
		WindowCount:             diag.WindowCount,
		ExpectedWindowCount:     diag.ExpectedWindowCount,
		CoveragePct:             diag.CoveragePct,
		CoverageLabel:           diag.CoverageLabel,
		GapCount:                diag.GapCount,
		GapSeconds:              diag.GapSeconds,
		OverlapCount:            diag.OverlapCount,
		SpilloverSecondsNextDay: diag.SpilloverSecondsNextDay,
	}

	if a.Calendars != nil {
		agg.CalendarClosed = a.Calendars.IsClosed(desc.SourceID, dayStart)
	}

	return agg, nil
}

// -----------------------------------------------------------------------------

// ExpectedWindowCount is 86400 / window_duration for a full day. When the
// source declares active_from / active_until, only aligned window starts
// inside both the day and the active interval are expected.
func ExpectedWindowCount(dayStart time.Time, desc models.MSourceDescriptor) (int64, error) {
	d := desc.WindowDuration
	if d <= 0 || models.SecondsPerDay%d != 0 {
		return 0, helpers.NewConfigurationError(
			"source '%s': window_duration %ds does not evenly divide a day", desc.SourceID, d)
	}

	lo := DayStart(dayStart).Unix()
	hi := lo + models.SecondsPerDay
	if desc.ActiveFrom == nil && desc.ActiveUntil == nil {
		return models.SecondsPerDay / d, nil
	}

	if desc.ActiveFrom != nil {
		if from := ceilToWindow(desc.ActiveFrom.Unix(), d); from > lo {
			lo = from
		}
	}
	if desc.ActiveUntil != nil {
		if until := desc.ActiveUntil.Unix(); until < hi {
			hi = until
		}
	}
	if hi <= lo {
		return 0, nil
	}
	return (ceilToWindow(hi, d) - lo) / d, nil
}

// -----------------------------------------------------------------------------

func ceilToWindow(ts, d int64) int64 {
	floor := FloorToWindow(ts, d)
	if floor == ts {
		return ts
	}
	return floor + d
}
