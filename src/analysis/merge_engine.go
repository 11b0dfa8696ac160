package analysis

import (
	"sort"
	"time"

	"series-canon/src/helpers"
	"series-canon/src/logger"
	"series-canon/src/models"
)

// MergeAction classifies one incoming key against the stored snapshot.
type MergeAction string

const (
	ActionInsert    MergeAction = "insert"
	ActionOverwrite MergeAction = "overwrite"
	ActionNoOp      MergeAction = "no_op"
)

// MergeConflict records a key that arrived more than once in one batch
// with different values. The last value in input order wins.
type MergeConflict struct {
	Key    models.MWindowKey `json:"key"`
	Values []float64         `json:"values"`
	Kept   float64           `json:"kept"`
}

// MergePlan is the write batch produced by the merge engine.
type MergePlan struct {
	Writes      []models.MWindowRecord
	Inserted    []models.MWindowKey
	Overwritten []models.MWindowKey
	Unchanged   []models.MWindowKey
	Conflicts   []MergeConflict
}

// -----------------------------------------------------------------------------

// TouchedPartitions lists the (date, source, metric) partitions of every
// written key, sorted.
func (p MergePlan) TouchedPartitions() []models.MPartitionKey {
	set := make(map[models.MPartitionKey]struct{})
	for _, w := range p.Writes {
		set[w.Partition()] = struct{}{}
	}
	return SortedPartitions(set)
}

// -----------------------------------------------------------------------------

// AcceptedPartitions lists the partitions of every accepted record, written
// or not, sorted. It is a superset of TouchedPartitions.
func AcceptedPartitions(records []models.MWindowRecord) []models.MPartitionKey {
	set := make(map[models.MPartitionKey]struct{})
	for _, r := range records {
		set[r.Partition()] = struct{}{}
	}
	return SortedPartitions(set)
}

// MergeEngine resolves incoming canonical records by natural key.
type MergeEngine struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMergeEngine(log *logger.Logger) *MergeEngine {
	return &MergeEngine{Logger: log}
}

// -----------------------------------------------------------------------------

// Plan compares accepted records with the stored snapshot and returns only
// inserts and overwrites as writes. Keys already stored with an identical
// value are no-ops, which makes replaying an extract idempotent.
func (m *MergeEngine) Plan(accepted []models.MWindowRecord, snapshot map[models.MWindowKey]models.MWindowRecord) MergePlan {
	latest := make(map[models.MWindowKey]models.MWindowRecord, len(accepted))
	seen := make(map[models.MWindowKey][]float64)

	for _, rec := range accepted {
		key := rec.Key()
		seen[key] = append(seen[key], rec.Value)
		latest[key] = rec
	}

	keys := make([]models.MWindowKey, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var plan MergePlan
	for _, key := range keys {
		rec := latest[key]

		if values := seen[key]; hasDistinct(values) {
			conflict := MergeConflict{Key: key, Values: values, Kept: rec.Value}
			plan.Conflicts = append(plan.Conflicts, conflict)
			if m.Logger != nil {
				m.Logger.Warning("%v", helpers.NewMergeConflict(
					"key %s/%s@%s arrived %d times with values %v, keeping last %v",
					key.Source, key.Metric, time.Unix(key.WindowStart, 0).UTC().Format(time.RFC3339),
					len(values), values, rec.Value))
			}
		}

		switch Classify(rec, snapshot) {
		case ActionInsert:
			plan.Inserted = append(plan.Inserted, key)
			plan.Writes = append(plan.Writes, rec)
		case ActionNoOp:
			plan.Unchanged = append(plan.Unchanged, key)
		default:
			plan.Overwritten = append(plan.Overwritten, key)
			plan.Writes = append(plan.Writes, rec)
		}
	}

	return plan
}

// -----------------------------------------------------------------------------

// Classify returns the action Plan would take for rec.
func Classify(rec models.MWindowRecord, snapshot map[models.MWindowKey]models.MWindowRecord) MergeAction {
	prev, ok := snapshot[rec.Key()]
	switch {
	case !ok:
		return ActionInsert
	case sameWindow(prev, rec):
		return ActionNoOp
	default:
		return ActionOverwrite
	}
}

// -----------------------------------------------------------------------------

// SnapshotRange returns the [from, to) window-start range covering records.
func SnapshotRange(records []models.MWindowRecord) (time.Time, time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	from, to := records[0].WindowStart, records[0].WindowStart
	for _, r := range records[1:] {
		if r.WindowStart.Before(from) {
			from = r.WindowStart
		}
		if r.WindowStart.After(to) {
			to = r.WindowStart
		}
	}
	return from, to.Add(time.Second), true
}

// -----------------------------------------------------------------------------

// IndexByKey builds a snapshot map from stored records.
func IndexByKey(records []models.MWindowRecord) map[models.MWindowKey]models.MWindowRecord {
	idx := make(map[models.MWindowKey]models.MWindowRecord, len(records))
	for _, r := range records {
		idx[r.Key()] = r
	}
	return idx
}

// -----------------------------------------------------------------------------

func sameWindow(a, b models.MWindowRecord) bool {
	return a.Value == b.Value && a.WindowDuration == b.WindowDuration
}

func hasDistinct(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}
