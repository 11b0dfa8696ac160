package interfaces

import (
	"context"
	"time"

	"series-canon/src/models"
)

// -----------------------------------------------------------------------------
// ICanonicalStore holds canonical window records keyed by
// (window_start, source, metric).
// -----------------------------------------------------------------------------

type ICanonicalStore interface {

	// -----------------------------------------------------------------------------

	// ReadRange returns the stored windows of source with start in [from, to).
	// An empty metric matches every metric of the source.
	ReadRange(ctx context.Context, source, metric string, from, to time.Time) ([]models.MWindowRecord, error)

	// -----------------------------------------------------------------------------

	// UpsertWindows writes the batch in one transaction, replacing by key.
	UpsertWindows(ctx context.Context, records []models.MWindowRecord) error

	// -----------------------------------------------------------------------------

	// DeleteWindows removes the source's windows with start in [from, to).
	// Used by backfill replay only.
	DeleteWindows(ctx context.Context, source string, from, to time.Time) (int64, error)
}

// -----------------------------------------------------------------------------
// IAggregateStore holds daily aggregates keyed by (date, source, metric).
// -----------------------------------------------------------------------------

type IAggregateStore interface {

	// ReplaceAggregates overwrites each aggregate's partition wholesale.
	ReplaceAggregates(ctx context.Context, aggs []models.MDailyAggregate) error

	// ListAggregates returns stored aggregates ordered by source, metric, date.
	ListAggregates(ctx context.Context, filter models.MAggregateFilter) ([]models.MDailyAggregate, error)
}

// -----------------------------------------------------------------------------
// IRejectStore keeps the audit trail of records refused by the validity filter.
// -----------------------------------------------------------------------------

type IRejectStore interface {
	SaveRejected(ctx context.Context, runID string, rejected []models.MRejectedRecord) error
	ListRejected(ctx context.Context, source string, limit int) ([]models.MRejectedRecord, error)
}

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {
	ICanonicalStore
	IAggregateStore
	IRejectStore

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// RegisterSource records the window duration a source was first seen
	// with and fails if it has changed since.
	RegisterSource(ctx context.Context, desc models.MSourceDescriptor) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
