package storage

import (
	"fmt"

	"series-canon/src/interfaces"
	"series-canon/src/logger"
	"series-canon/src/models"
)

// -----------------------------------------------------------------------------

// NewDatabase builds the store selected by storage.db_type. The returned
// database is not yet initialized.
func NewDatabase(config *models.MConfig) (interfaces.IDatabase, error) {
	switch config.Storage.DBType {
	case "postgres":
		return NewPostgresDB(config, logger.NewLogger(config, "PostgresDB"))
	case "sqlite":
		return NewAsyncSQLiteDB(config, logger.NewLogger(config, "SQLiteDB"))
	case "memory", "":
		return NewMemoryDB(logger.NewLogger(config, "MemoryDB")), nil
	default:
		return nil, fmt.Errorf("unknown db_type '%s'", config.Storage.DBType)
	}
}
