package storage

import (
	"context"
	"fmt"
	"time"

	"series-canon/src/helpers"
	"series-canon/src/models"
)

// sourceRow is the sources registry row layout.
type sourceRow struct {
	SourceID       string `db:"source_id"`
	WindowDuration int64  `db:"window_duration"`
	ValueUnit      string `db:"value_unit"`
	UpdatedAt      int64  `db:"updated_at"`
}

// -----------------------------------------------------------------------------

// RegisterSource records the source's window duration on first sight. A
// later run with a different duration is refused as a configuration error.
func (s *sqlStore) RegisterSource(ctx context.Context, desc models.MSourceDescriptor) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing sourceRow
	query := fmt.Sprintf(`SELECT source_id, window_duration, value_unit, updated_at FROM %s WHERE source_id = ?`,
		s.table("sources"))
	err = tx.GetContext(ctx, &existing, tx.Rebind(query), desc.SourceID)
	switch {
	case err == nil && existing.WindowDuration != desc.WindowDuration:
		return helpers.NewConfigurationError(
			"source '%s' is registered with window_duration %ds, configured %ds; backfill into a new source id instead",
			desc.SourceID, existing.WindowDuration, desc.WindowDuration)
	case err != nil && !isNoRows(err):
		return fmt.Errorf("lookup source %s: %w", desc.SourceID, err)
	}

	_, err = tx.NamedExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (source_id, window_duration, value_unit, updated_at)
		VALUES (:source_id, :window_duration, :value_unit, :updated_at)
		ON CONFLICT (source_id) DO UPDATE SET
			value_unit = excluded.value_unit,
			updated_at = excluded.updated_at`, s.table("sources")),
		sourceRow{
			SourceID:       desc.SourceID,
			WindowDuration: desc.WindowDuration,
			ValueUnit:      desc.ValueUnit,
			UpdatedAt:      time.Now().UTC().Unix(),
		})
	if err != nil {
		return fmt.Errorf("register source %s: %w", desc.SourceID, err)
	}

	return tx.Commit()
}
