package models

import "time"

// MRunReport summarises one run of one source through the pipeline.
type MRunReport struct {
	RunID               string            `json:"run_id"`
	Source              string            `json:"source"`
	Extract             string            `json:"extract"`
	StartedAt           time.Time         `json:"started_at"`
	DurationSeconds     float64           `json:"duration_seconds"`
	RowsRead            int               `json:"rows_read"`
	Normalized          int               `json:"normalized"`
	Malformed           map[string]int    `json:"malformed"`
	AlignmentViolations int               `json:"alignment_violations"`
	Accepted            int               `json:"accepted"`
	Rejected            map[string]int    `json:"rejected"`
	Inserted            int               `json:"inserted"`
	Overwritten         int               `json:"overwritten"`
	Unchanged           int               `json:"unchanged"`
	MergeConflicts      int               `json:"merge_conflicts"`
	Deleted             int64             `json:"deleted,omitempty"`
	Partitions          int               `json:"partitions"`
	PartitionErrors     map[string]string `json:"partition_errors,omitempty"`
	Aggregates          []MDailyAggregate `json:"aggregates,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------

// MalformedTotal sums malformed rows over all reasons.
func (r *MRunReport) MalformedTotal() int {
	total := 0
	for _, n := range r.Malformed {
		total += n
	}
	return total
}

// -----------------------------------------------------------------------------

// RejectedTotal sums rejected records over all reasons.
func (r *MRunReport) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}
