package analysis

import (
	"sort"
	"time"

	"series-canon/src/models"
)

// FloorToWindow returns the window start containing ts, measured from the
// Unix epoch. Negative timestamps floor toward minus infinity.
func FloorToWindow(ts int64, windowSeconds int64) int64 {
	rem := ts % windowSeconds
	if rem < 0 {
		rem += windowSeconds
	}
	return ts - rem
}

// -----------------------------------------------------------------------------

// IsAligned reports whether ts sits exactly on a window boundary.
func IsAligned(ts int64, windowSeconds int64) bool {
	return windowSeconds > 0 && FloorToWindow(ts, windowSeconds) == ts
}

// -----------------------------------------------------------------------------

// DayStart returns UTC midnight of the day containing t.
func DayStart(t time.Time) time.Time {
	return time.Unix(FloorToWindow(t.Unix(), models.SecondsPerDay), 0).UTC()
}

// -----------------------------------------------------------------------------

// SortByWindowStart orders records by window start, then source and metric.
// The sort is stable so equal starts keep input order.
func SortByWindowStart(records []models.MWindowRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].WindowStart.Equal(records[j].WindowStart) {
			return records[i].WindowStart.Before(records[j].WindowStart)
		}
		if records[i].Source != records[j].Source {
			return records[i].Source < records[j].Source
		}
		return records[i].Metric < records[j].Metric
	})
}

// -----------------------------------------------------------------------------

// DaysInRange lists the UTC dates of every day intersecting [from, to).
func DaysInRange(from, to time.Time) []string {
	var days []string
	for d := DayStart(from); d.Before(to); d = d.Add(time.Duration(models.SecondsPerDay) * time.Second) {
		days = append(days, models.DateOf(d))
	}
	return days
}

// -----------------------------------------------------------------------------

// SortedPartitions returns the keys of a partition set in deterministic order.
func SortedPartitions(set map[models.MPartitionKey]struct{}) []models.MPartitionKey {
	keys := make([]models.MPartitionKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
