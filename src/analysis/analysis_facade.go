package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"series-canon/src/config"
	"series-canon/src/helpers"
	"series-canon/src/interfaces"
	"series-canon/src/logger"
	"series-canon/src/metrics"
	"series-canon/src/models"
	"series-canon/src/utils"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// AnalysisFacade runs extracts through normalize, filter, merge and
// aggregate against the configured stores.
type AnalysisFacade struct {
	Config     *models.MConfig
	DB         interfaces.IDatabase
	Logger     *logger.Logger
	Errors     *helpers.ErrorHandler
	Normalizer *Normalizer
	Filter     *ValidityFilter
	Merger     *MergeEngine
	Aggregator *DailyAggregator

	workers int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, db interfaces.IDatabase, log *logger.Logger) *AnalysisFacade {
	workers := cfg.Engine.Workers
	if workers <= 0 {
		workers = helpers.RecommendedWorkers()
	}

	return &AnalysisFacade{
		Config:     cfg,
		DB:         db,
		Logger:     log,
		Errors:     helpers.NewErrorHandler(log.Named("Errors")),
		Normalizer: NewNormalizer(log.Named("Normalizer")),
		Filter:     NewValidityFilter(),
		Merger:     NewMergeEngine(log.Named("MergeEngine")),
		Aggregator: NewDailyAggregator(utils.NewCalendarRegistry(cfg.Sources, log.Named("Calendars"))),
		workers:    workers,
		locks:      make(map[string]*sync.Mutex),
	}
}

// -----------------------------------------------------------------------------

// sourceLock serializes runs of the same source.
func (a *AnalysisFacade) sourceLock(sourceID string) *sync.Mutex {
	a.locksMu.Lock()
	defer a.locksMu.Unlock()

	l, ok := a.locks[sourceID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[sourceID] = l
	}
	return l
}

// -----------------------------------------------------------------------------

// RunExtract ingests one raw extract for desc. Per-row and per-partition
// problems are counted in the report; the returned error is set only when
// the run for this source could not complete.
func (a *AnalysisFacade) RunExtract(ctx context.Context, desc models.MSourceDescriptor, extract models.MRawExtract) (models.MRunReport, error) {
	lock := a.sourceLock(desc.SourceID)
	lock.Lock()
	defer lock.Unlock()

	report := a.newReport(desc, extract)
	err := a.process(ctx, &report, desc, extract, nil)
	return a.finish(report, err)
}

// -----------------------------------------------------------------------------

// Backfill replaces the source's canonical windows with start in [from, to)
// by the content of extract and recomputes every day of the range. Days
// left without windows get an empty aggregate.
func (a *AnalysisFacade) Backfill(
	ctx context.Context,
	desc models.MSourceDescriptor,
	from, to time.Time,
	extract models.MRawExtract,
) (models.MRunReport, error) {

	if !from.Before(to) {
		return models.MRunReport{}, fmt.Errorf("backfill %s: empty range [%s, %s)", desc.SourceID, from, to)
	}

	lock := a.sourceLock(desc.SourceID)
	lock.Lock()
	defer lock.Unlock()

	report := a.newReport(desc, extract)
	err := a.backfill(ctx, &report, desc, from.UTC(), to.UTC(), extract)
	return a.finish(report, err)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) backfill(
	ctx context.Context,
	report *models.MRunReport,
	desc models.MSourceDescriptor,
	from, to time.Time,
	extract models.MRawExtract,
) error {

	if err := a.checkSource(ctx, desc); err != nil {
		return err
	}

	// Metrics present in the range before deletion still need their days rewritten.
	before, err := a.DB.ReadRange(ctx, desc.SourceID, "", from, to)
	if err != nil {
		return err
	}
	prior, err := a.DB.ListAggregates(ctx, models.MAggregateFilter{
		Source:   desc.SourceID,
		FromDate: models.DateOf(from),
		ToDate:   models.DateOf(to.Add(-time.Second)),
	})
	if err != nil {
		return err
	}

	deleted, err := a.DB.DeleteWindows(ctx, desc.SourceID, from, to)
	if err != nil {
		return err
	}
	report.Deleted = deleted
	a.Logger.Info("Backfill %s: deleted %d windows in [%s, %s)", desc.SourceID, deleted,
		from.Format(time.RFC3339), to.Format(time.RFC3339))

	metricSet := make(map[string]struct{})
	for _, r := range before {
		metricSet[r.Metric] = struct{}{}
	}
	for _, agg := range prior {
		metricSet[agg.Metric] = struct{}{}
	}

	return a.process(ctx, report, desc, extract, func(plan MergePlan, accepted []models.MWindowRecord) []models.MPartitionKey {
		for _, r := range accepted {
			metricSet[r.Metric] = struct{}{}
		}
		set := make(map[models.MPartitionKey]struct{})
		for _, p := range plan.TouchedPartitions() {
			set[p] = struct{}{}
		}
		for _, day := range DaysInRange(from, to) {
			for metric := range metricSet {
				set[models.MPartitionKey{Date: day, Source: desc.SourceID, Metric: metric}] = struct{}{}
			}
		}
		return SortedPartitions(set)
	})
}

// -----------------------------------------------------------------------------

// partitionSelector chooses the partitions to recompute after a merge.
type partitionSelector func(plan MergePlan, accepted []models.MWindowRecord) []models.MPartitionKey

func (a *AnalysisFacade) process(
	ctx context.Context,
	report *models.MRunReport,
	desc models.MSourceDescriptor,
	extract models.MRawExtract,
	selectPartitions partitionSelector,
) error {

	if selectPartitions == nil {
		if err := a.checkSource(ctx, desc); err != nil {
			return err
		}
		// Every day holding an accepted key is recomputed, unchanged keys
		// included, so a retry after a failed aggregate write converges.
		selectPartitions = func(_ MergePlan, accepted []models.MWindowRecord) []models.MPartitionKey {
			return AcceptedPartitions(accepted)
		}
	}

	// 1. Normalize
	norm := a.Normalizer.Normalize(extract, desc)
	report.RowsRead = norm.RowsRead
	report.Normalized = len(norm.Records)
	report.Malformed = norm.Malformed
	report.AlignmentViolations = norm.AlignmentViolations

	// 2. Validity
	valid := a.Filter.Apply(norm.Records, desc.Rules)
	report.Accepted = len(valid.Accepted)
	report.Rejected = valid.CountByReason()
	if err := a.DB.SaveRejected(ctx, report.RunID, valid.Rejected); err != nil {
		return fmt.Errorf("save rejected records: %w", err)
	}

	// 3. Merge against an explicit snapshot of the batch's key range
	snapshot := map[models.MWindowKey]models.MWindowRecord{}
	if from, to, ok := SnapshotRange(valid.Accepted); ok {
		stored, err := a.DB.ReadRange(ctx, desc.SourceID, "", from, to)
		if err != nil {
			return fmt.Errorf("read merge snapshot: %w", err)
		}
		snapshot = IndexByKey(stored)
	}

	plan := a.Merger.Plan(valid.Accepted, snapshot)
	report.Inserted = len(plan.Inserted)
	report.Overwritten = len(plan.Overwritten)
	report.Unchanged = len(plan.Unchanged)
	report.MergeConflicts = len(plan.Conflicts)

	if err := a.DB.UpsertWindows(ctx, plan.Writes); err != nil {
		return fmt.Errorf("upsert canonical windows: %w", err)
	}

	// 4. Aggregate every touched day
	partitions := selectPartitions(plan, valid.Accepted)
	report.Partitions = len(partitions)
	if len(partitions) == 0 {
		return nil
	}

	aggs, failed := a.AggregatePartitions(ctx, desc, partitions)
	if len(failed) > 0 {
		report.PartitionErrors = failed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.DB.ReplaceAggregates(ctx, aggs); err != nil {
		return fmt.Errorf("replace aggregates: %w", err)
	}
	report.Aggregates = aggs

	return nil
}

// -----------------------------------------------------------------------------

// AggregatePartitions recomputes partitions on a bounded worker pool.
// A failing partition is reported in the returned map and never stops the
// others. Successful aggregates keep the order of partitions.
func (a *AnalysisFacade) AggregatePartitions(
	ctx context.Context,
	desc models.MSourceDescriptor,
	partitions []models.MPartitionKey,
) ([]models.MDailyAggregate, map[string]string) {

	results := make([]*models.MDailyAggregate, len(partitions))
	errs := make([]error, len(partitions))

	var g errgroup.Group
	g.SetLimit(a.workers)

	for i, p := range partitions {
		g.Go(func() error {
			agg, err := a.aggregatePartition(ctx, desc, p)
			if err != nil {
				errs[i] = fmt.Errorf("partition %s: %w", p, err)
				return nil
			}
			results[i] = &agg
			return nil
		})
	}
	g.Wait()

	aggs := make([]models.MDailyAggregate, 0, len(partitions))
	for _, r := range results {
		if r != nil {
			aggs = append(aggs, *r)
		}
	}

	var failed map[string]string
	for i, err := range errs {
		if err == nil {
			continue
		}
		if failed == nil {
			failed = make(map[string]string)
		}
		failed[partitions[i].String()] = err.Error()
	}

	if combined := multierr.Combine(errs...); combined != nil {
		for _, err := range multierr.Errors(combined) {
			a.Errors.Handle(err, desc.SourceID)
		}
	}

	return aggs, failed
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) aggregatePartition(ctx context.Context, desc models.MSourceDescriptor, p models.MPartitionKey) (models.MDailyAggregate, error) {
	if err := ctx.Err(); err != nil {
		return models.MDailyAggregate{}, err
	}

	dayStart, err := p.DayStart()
	if err != nil {
		return models.MDailyAggregate{}, err
	}
	dayEnd := dayStart.Add(time.Duration(models.SecondsPerDay) * time.Second)

	windows, err := a.DB.ReadRange(ctx, p.Source, p.Metric, dayStart, dayEnd)
	if err != nil {
		return models.MDailyAggregate{}, err
	}

	return a.Aggregator.Aggregate(p, windows, desc)
}

// -----------------------------------------------------------------------------

// checkSource fails the run when the descriptor cannot be processed at all.
func (a *AnalysisFacade) checkSource(ctx context.Context, desc models.MSourceDescriptor) error {
	if err := config.ValidateDescriptor(desc); err != nil {
		return err
	}
	return a.DB.RegisterSource(ctx, desc)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) newReport(desc models.MSourceDescriptor, extract models.MRawExtract) models.MRunReport {
	return models.MRunReport{
		RunID:     uuid.NewString(),
		Source:    desc.SourceID,
		Extract:   extract.Name,
		StartedAt: time.Now().UTC(),
		Malformed: map[string]int{},
		Rejected:  map[string]int{},
	}
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) finish(report models.MRunReport, err error) (models.MRunReport, error) {
	report.DurationSeconds = time.Since(report.StartedAt).Seconds()

	if err != nil {
		report.Error = err.Error()
		a.Errors.Handle(err, "run "+report.Source)
	} else {
		a.Logger.Info("Run %s [%s/%s]: read=%d malformed=%d misaligned=%d rejected=%d inserted=%d overwritten=%d unchanged=%d partitions=%d failed=%d (%.3fs)",
			report.RunID, report.Source, report.Extract, report.RowsRead, report.MalformedTotal(),
			report.AlignmentViolations, report.RejectedTotal(), report.Inserted, report.Overwritten,
			report.Unchanged, report.Partitions, len(report.PartitionErrors), report.DurationSeconds)
	}

	metrics.ObserveRun(report)
	return report, err
}
