package models

// Coverage labels attached to a daily aggregate.
const (
	CoverageComplete = "complete"
	CoveragePartial  = "partial"
	CoverageOver100  = "over_100"
	CoverageEmpty    = "empty"
	CoverageUnknown  = "unknown"
)

// MDailyAggregate is the long-form daily statistics and diagnostics row
// for one (date, source, metric) partition. It is always fully derived.
type MDailyAggregate struct {
	Date                    string  `json:"date" db:"date"`
	Source                  string  `json:"source" db:"source"`
	Metric                  string  `json:"metric" db:"metric"`
	Mean                    float64 `json:"mean" db:"mean"`
	Min                     float64 `json:"min" db:"min_value"`
	Max                     float64 `json:"max" db:"max_value"`
	StdDev                  float64 `json:"stddev" db:"stddev"`
	WindowCount             int64   `json:"window_count" db:"window_count"`
	ExpectedWindowCount     int64   `json:"expected_window_count" db:"expected_window_count"`
	CoveragePct             float64 `json:"coverage_pct" db:"coverage_pct"`
	CoverageLabel           string  `json:"coverage_label" db:"coverage_label"`
	GapCount                int64   `json:"gap_count" db:"gap_count"`
	GapSeconds              int64   `json:"gap_seconds" db:"gap_seconds"`
	OverlapCount            int64   `json:"overlap_count" db:"overlap_count"`
	SpilloverSecondsNextDay int64   `json:"spillover_seconds_next_day" db:"spillover_seconds_next_day"`
	CalendarClosed          bool    `json:"calendar_closed" db:"calendar_closed"`
}

// MDiagnostics is the output of the coverage/gap walk over one partition.
type MDiagnostics struct {
	WindowCount             int64   `json:"window_count"`
	ExpectedWindowCount     int64   `json:"expected_window_count"`
	CoveragePct             float64 `json:"coverage_pct"`
	CoverageLabel           string  `json:"coverage_label"`
	GapCount                int64   `json:"gap_count"`
	GapSeconds              int64   `json:"gap_seconds"`
	OverlapCount            int64   `json:"overlap_count"`
	SpilloverSecondsNextDay int64   `json:"spillover_seconds_next_day"`
}

// -----------------------------------------------------------------------------

func (a MDailyAggregate) Partition() MPartitionKey {
	return MPartitionKey{Date: a.Date, Source: a.Source, Metric: a.Metric}
}

// MAggregateFilter selects aggregates for listing. Empty fields match all.
type MAggregateFilter struct {
	Source   string
	Metric   string
	FromDate string // inclusive, YYYY-MM-DD
	ToDate   string // inclusive, YYYY-MM-DD
}
