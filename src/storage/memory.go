package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"series-canon/src/helpers"
	"series-canon/src/logger"
	"series-canon/src/models"
)

// MemoryDB keeps every table in process memory. It backs db_type "memory"
// and the engine tests.
type MemoryDB struct {
	Logger *logger.Logger

	mu         sync.RWMutex
	windows    map[models.MWindowKey]models.MWindowRecord
	aggregates map[models.MPartitionKey]models.MDailyAggregate
	rejected   []models.MRejectedRecord
	sources    map[string]int64
}

// -----------------------------------------------------------------------------

func NewMemoryDB(log *logger.Logger) *MemoryDB {
	return &MemoryDB{Logger: log}
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windows == nil {
		m.windows = make(map[models.MWindowKey]models.MWindowRecord)
		m.aggregates = make(map[models.MPartitionKey]models.MDailyAggregate)
		m.sources = make(map[string]int64)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) ReadRange(ctx context.Context, source, metric string, from, to time.Time) ([]models.MWindowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo, hi := from.Unix(), to.Unix()
	var out []models.MWindowRecord
	for k, r := range m.windows {
		if k.Source != source || (metric != "" && k.Metric != metric) {
			continue
		}
		if k.WindowStart < lo || k.WindowStart >= hi {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

// -----------------------------------------------------------------------------

// UpsertWindows applies the whole batch under one lock.
func (m *MemoryDB) UpsertWindows(ctx context.Context, records []models.MWindowRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		r.WindowStart = r.WindowStart.UTC()
		m.windows[r.Key()] = r
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) DeleteWindows(ctx context.Context, source string, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lo, hi := from.Unix(), to.Unix()
	var n int64
	for k := range m.windows {
		if k.Source == source && k.WindowStart >= lo && k.WindowStart < hi {
			delete(m.windows, k)
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) ReplaceAggregates(ctx context.Context, aggs []models.MDailyAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range aggs {
		m.aggregates[a.Partition()] = a
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) ListAggregates(ctx context.Context, filter models.MAggregateFilter) ([]models.MDailyAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.MDailyAggregate{}
	for p, a := range m.aggregates {
		if filter.Source != "" && p.Source != filter.Source {
			continue
		}
		if filter.Metric != "" && p.Metric != filter.Metric {
			continue
		}
		if filter.FromDate != "" && p.Date < filter.FromDate {
			continue
		}
		if filter.ToDate != "" && p.Date > filter.ToDate {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Partition().Less(out[j].Partition()) })
	return out, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) SaveRejected(ctx context.Context, runID string, rejected []models.MRejectedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range rejected {
		r.RunID = runID
		m.rejected = append(m.rejected, r)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ListRejected returns the newest rejected records first.
func (m *MemoryDB) ListRejected(ctx context.Context, source string, limit int) ([]models.MRejectedRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MRejectedRecord
	for i := len(m.rejected) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.rejected[i]
		if source != "" && r.Record.Source != source {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) RegisterSource(ctx context.Context, desc models.MSourceDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.sources[desc.SourceID]; ok && d != desc.WindowDuration {
		return helpers.NewConfigurationError(
			"source '%s' is registered with window_duration %ds, configured %ds; backfill into a new source id instead",
			desc.SourceID, d, desc.WindowDuration)
	}
	m.sources[desc.SourceID] = desc.WindowDuration
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryDB) Close() error {
	return nil
}
