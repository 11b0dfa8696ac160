package storage

import (
	"fmt"

	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	sqlStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		sqlStore: sqlStore{Logger: log},
		Config:   cfg,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	// A single connection serializes writers and keeps transactions on one handle.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(sqliteSchema); err != nil {
		return fmt.Errorf("sqlite %s: %w", dsn, err)
	}

	d.Logger.Info("SQLite initialized successfully (%s)", dsn)
	return nil
}

// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS canonical_windows (
		source TEXT NOT NULL,
		metric TEXT NOT NULL,
		window_start INTEGER NOT NULL,
		window_duration INTEGER NOT NULL,
		value REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (source, metric, window_start)
	);`,
	`CREATE TABLE IF NOT EXISTS daily_aggregates (
		date TEXT NOT NULL,
		source TEXT NOT NULL,
		metric TEXT NOT NULL,
		mean REAL,
		min_value REAL,
		max_value REAL,
		stddev REAL,
		window_count INTEGER,
		expected_window_count INTEGER,
		coverage_pct REAL,
		coverage_label TEXT,
		gap_count INTEGER,
		gap_seconds INTEGER,
		overlap_count INTEGER,
		spillover_seconds_next_day INTEGER,
		calendar_closed BOOLEAN,
		PRIMARY KEY (date, source, metric)
	);`,
	`CREATE TABLE IF NOT EXISTS rejected_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		source TEXT,
		metric TEXT,
		window_start INTEGER,
		window_duration INTEGER,
		value REAL,
		reason TEXT,
		rejected_at INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS rejected_records_source ON rejected_records (source, rejected_at);`,
	`CREATE TABLE IF NOT EXISTS sources (
		source_id TEXT PRIMARY KEY,
		window_duration INTEGER NOT NULL,
		value_unit TEXT,
		updated_at INTEGER
	);`,
}
