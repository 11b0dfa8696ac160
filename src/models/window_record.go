package models

import "time"

// MWindowRecord is one canonical measurement window.
type MWindowRecord struct {
	WindowStart    time.Time `json:"window_start"`
	Source         string    `json:"source"`
	Metric         string    `json:"metric"`
	Value          float64   `json:"value"`
	WindowDuration int64     `json:"window_duration"`
}

// MWindowKey is the natural key of a canonical window.
type MWindowKey struct {
	WindowStart int64  `json:"window_start"` // unix seconds, UTC
	Source      string `json:"source"`
	Metric      string `json:"metric"`
}

// -----------------------------------------------------------------------------

func (r MWindowRecord) Key() MWindowKey {
	return MWindowKey{
		WindowStart: r.WindowStart.Unix(),
		Source:      r.Source,
		Metric:      r.Metric,
	}
}

// -----------------------------------------------------------------------------

// WindowEnd returns the exclusive end of the window.
func (r MWindowRecord) WindowEnd() time.Time {
	return r.WindowStart.Add(time.Duration(r.WindowDuration) * time.Second)
}

// -----------------------------------------------------------------------------

// Partition returns the (date, source, metric) partition the window belongs to.
func (r MWindowRecord) Partition() MPartitionKey {
	return MPartitionKey{
		Date:   DateOf(r.WindowStart),
		Source: r.Source,
		Metric: r.Metric,
	}
}

// -----------------------------------------------------------------------------

// Less orders keys by source, metric, then window start.
func (k MWindowKey) Less(o MWindowKey) bool {
	if k.Source != o.Source {
		return k.Source < o.Source
	}
	if k.Metric != o.Metric {
		return k.Metric < o.Metric
	}
	return k.WindowStart < o.WindowStart
}
