package storage

import (
	"fmt"
	"regexp"
	"strings"

	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var schemaNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	sqlStore
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every table inside a schema named after the
// configured service name, so several deployments can share a database.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := schemaNameSanitizer.ReplaceAllString(strings.ToLower(cfg.Name), "_")
	if name == "" {
		return nil, fmt.Errorf("cannot derive a schema name from '%s'", cfg.Name)
	}

	return &PostgresDB{
		sqlStore: sqlStore{Logger: log, prefix: fmt.Sprintf(`"%s".`, name)},
		Config:   cfg,
		Schema:   name,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(d.schemaDDL()); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) schemaDDL() []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				source TEXT NOT NULL,
				metric TEXT NOT NULL,
				window_start BIGINT NOT NULL,
				window_duration BIGINT NOT NULL,
				value DOUBLE PRECISION NOT NULL,
				updated_at BIGINT NOT NULL,
				PRIMARY KEY (source, metric, window_start)
			);`, d.table("canonical_windows")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				date TEXT NOT NULL,
				source TEXT NOT NULL,
				metric TEXT NOT NULL,
				mean DOUBLE PRECISION,
				min_value DOUBLE PRECISION,
				max_value DOUBLE PRECISION,
				stddev DOUBLE PRECISION,
				window_count BIGINT,
				expected_window_count BIGINT,
				coverage_pct DOUBLE PRECISION,
				coverage_label TEXT,
				gap_count BIGINT,
				gap_seconds BIGINT,
				overlap_count BIGINT,
				spillover_seconds_next_day BIGINT,
				calendar_closed BOOLEAN,
				PRIMARY KEY (date, source, metric)
			);`, d.table("daily_aggregates")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				run_id TEXT,
				source TEXT,
				metric TEXT,
				window_start BIGINT,
				window_duration BIGINT,
				value DOUBLE PRECISION,
				reason TEXT,
				rejected_at BIGINT
			);`, d.table("rejected_records")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				source_id TEXT PRIMARY KEY,
				window_duration BIGINT NOT NULL,
				value_unit TEXT,
				updated_at BIGINT
			);`, d.table("sources")),
	}
}
