package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/jmoiron/sqlx"
)

// windowRow is the canonical_windows row layout.
type windowRow struct {
	Source         string  `db:"source"`
	Metric         string  `db:"metric"`
	WindowStart    int64   `db:"window_start"`
	WindowDuration int64   `db:"window_duration"`
	Value          float64 `db:"value"`
	UpdatedAt      int64   `db:"updated_at"`
}

// rejectRow is the rejected_records row layout.
type rejectRow struct {
	RunID          string  `db:"run_id"`
	Source         string  `db:"source"`
	Metric         string  `db:"metric"`
	WindowStart    int64   `db:"window_start"`
	WindowDuration int64   `db:"window_duration"`
	Value          float64 `db:"value"`
	Reason         string  `db:"reason"`
	RejectedAt     int64   `db:"rejected_at"`
}

// -----------------------------------------------------------------------------

func toWindowRow(r models.MWindowRecord, now int64) windowRow {
	return windowRow{
		Source:         r.Source,
		Metric:         r.Metric,
		WindowStart:    r.WindowStart.Unix(),
		WindowDuration: r.WindowDuration,
		Value:          r.Value,
		UpdatedAt:      now,
	}
}

func (w windowRow) record() models.MWindowRecord {
	return models.MWindowRecord{
		WindowStart:    time.Unix(w.WindowStart, 0).UTC(),
		Source:         w.Source,
		Metric:         w.Metric,
		Value:          w.Value,
		WindowDuration: w.WindowDuration,
	}
}

// sqlStore implements the store contracts over any database/sql driver
// through sqlx. Queries are written with '?' and rebound per driver.
type sqlStore struct {
	DB     *sqlx.DB
	Logger *logger.Logger
	prefix string
}

// -----------------------------------------------------------------------------

func (s *sqlStore) table(name string) string {
	return s.prefix + name
}

// -----------------------------------------------------------------------------

func (s *sqlStore) ReadRange(ctx context.Context, source, metric string, from, to time.Time) ([]models.MWindowRecord, error) {
	query := fmt.Sprintf(`
		SELECT source, metric, window_start, window_duration, value, updated_at
		FROM %s
		WHERE source = ? AND window_start >= ? AND window_start < ?`, s.table("canonical_windows"))
	args := []interface{}{source, from.Unix(), to.Unix()}
	if metric != "" {
		query += " AND metric = ?"
		args = append(args, metric)
	}
	query += " ORDER BY metric, window_start"

	var rows []windowRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("read canonical windows for %s: %w", source, err)
	}

	out := make([]models.MWindowRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) UpsertWindows(ctx context.Context, records []models.MWindowRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (source, metric, window_start, window_duration, value, updated_at)
		VALUES (:source, :metric, :window_start, :window_duration, :value, :updated_at)
		ON CONFLICT (source, metric, window_start) DO UPDATE SET
			window_duration = excluded.window_duration,
			value = excluded.value,
			updated_at = excluded.updated_at`, s.table("canonical_windows")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, toWindowRow(r, now)); err != nil {
			return fmt.Errorf("upsert window %s/%s@%d: %w", r.Source, r.Metric, r.WindowStart.Unix(), err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) DeleteWindows(ctx context.Context, source string, from, to time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE source = ? AND window_start >= ? AND window_start < ?`,
		s.table("canonical_windows"))
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(query), source, from.Unix(), to.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete windows for %s: %w", source, err)
	}
	return res.RowsAffected()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) ReplaceAggregates(ctx context.Context, aggs []models.MDailyAggregate) error {
	if len(aggs) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (date, source, metric, mean, min_value, max_value, stddev,
			window_count, expected_window_count, coverage_pct, coverage_label,
			gap_count, gap_seconds, overlap_count, spillover_seconds_next_day, calendar_closed)
		VALUES (:date, :source, :metric, :mean, :min_value, :max_value, :stddev,
			:window_count, :expected_window_count, :coverage_pct, :coverage_label,
			:gap_count, :gap_seconds, :overlap_count, :spillover_seconds_next_day, :calendar_closed)
		ON CONFLICT (date, source, metric) DO UPDATE SET
			mean = excluded.mean,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			stddev = excluded.stddev,
			window_count = excluded.window_count,
			expected_window_count = excluded.expected_window_count,
			coverage_pct = excluded.coverage_pct,
			coverage_label = excluded.coverage_label,
			gap_count = excluded.gap_count,
			gap_seconds = excluded.gap_seconds,
			overlap_count = excluded.overlap_count,
			spillover_seconds_next_day = excluded.spillover_seconds_next_day,
			calendar_closed = excluded.calendar_closed`, s.table("daily_aggregates")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range aggs {
		if _, err := stmt.ExecContext(ctx, a); err != nil {
			return fmt.Errorf("replace aggregate %s: %w", a.Partition(), err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) ListAggregates(ctx context.Context, filter models.MAggregateFilter) ([]models.MDailyAggregate, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Metric != "" {
		where = append(where, "metric = ?")
		args = append(args, filter.Metric)
	}
	if filter.FromDate != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.ToDate)
	}

	query := fmt.Sprintf(`
		SELECT date, source, metric, mean, min_value, max_value, stddev,
			window_count, expected_window_count, coverage_pct, coverage_label,
			gap_count, gap_seconds, overlap_count, spillover_seconds_next_day, calendar_closed
		FROM %s`, s.table("daily_aggregates"))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY source, metric, date"

	aggs := []models.MDailyAggregate{}
	if err := s.DB.SelectContext(ctx, &aggs, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	return aggs, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) SaveRejected(ctx context.Context, runID string, rejected []models.MRejectedRecord) error {
	if len(rejected) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, source, metric, window_start, window_duration, value, reason, rejected_at)
		VALUES (:run_id, :source, :metric, :window_start, :window_duration, :value, :reason, :rejected_at)`,
		s.table("rejected_records")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rejected {
		row := rejectRow{
			RunID:          runID,
			Source:         r.Record.Source,
			Metric:         r.Record.Metric,
			WindowStart:    r.Record.WindowStart.Unix(),
			WindowDuration: r.Record.WindowDuration,
			Value:          r.Record.Value,
			Reason:         r.Reason,
			RejectedAt:     r.RejectedAt.Unix(),
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) ListRejected(ctx context.Context, source string, limit int) ([]models.MRejectedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT run_id, source, metric, window_start, window_duration, value, reason, rejected_at
		FROM %s`, s.table("rejected_records"))
	var args []interface{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY rejected_at DESC, window_start DESC LIMIT ?"
	args = append(args, limit)

	var rows []rejectRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list rejected: %w", err)
	}

	out := make([]models.MRejectedRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.MRejectedRecord{
			Record: models.MWindowRecord{
				WindowStart:    time.Unix(r.WindowStart, 0).UTC(),
				Source:         r.Source,
				Metric:         r.Metric,
				Value:          r.Value,
				WindowDuration: r.WindowDuration,
			},
			Reason:     r.Reason,
			RunID:      r.RunID,
			RejectedAt: time.Unix(r.RejectedAt, 0).UTC(),
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) createTables(ddl []string) error {
	for _, q := range ddl {
		if _, err := s.DB.Exec(q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
