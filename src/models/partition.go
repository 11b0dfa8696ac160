package models

import "time"

// DateLayout is the calendar-day format used for partition dates.
const DateLayout = "2006-01-02"

// SecondsPerDay is the length of a UTC calendar day.
const SecondsPerDay int64 = 86400

// MPartitionKey identifies one daily aggregate partition.
type MPartitionKey struct {
	Date   string `json:"date"`
	Source string `json:"source"`
	Metric string `json:"metric"`
}

// -----------------------------------------------------------------------------

// DateOf returns the UTC calendar day of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// -----------------------------------------------------------------------------

// DayStart parses the partition date as UTC midnight.
func (p MPartitionKey) DayStart() (time.Time, error) {
	return time.ParseInLocation(DateLayout, p.Date, time.UTC)
}

// -----------------------------------------------------------------------------

func (p MPartitionKey) String() string {
	return p.Date + "/" + p.Source + "/" + p.Metric
}

// -----------------------------------------------------------------------------

// Less orders partitions by source, metric, then date.
func (p MPartitionKey) Less(o MPartitionKey) bool {
	if p.Source != o.Source {
		return p.Source < o.Source
	}
	if p.Metric != o.Metric {
		return p.Metric < o.Metric
	}
	return p.Date < o.Date
}
