package main

import (
	"fmt"

	"series-canon/src/analysis"
	"series-canon/src/config"
	datasource "series-canon/src/data_source"
	"series-canon/src/data_source/file"
	"series-canon/src/interfaces"
	"series-canon/src/logger"
	"series-canon/src/models"
	"series-canon/src/storage"
)

// -----------------------------------------------------------------------------

// setupDatabase opens and migrates the store selected by the config
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(config)
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		db.Close()
		return nil, err
	}
	appLogger.Info("Storage ready (%s)", config.Storage.DBType)
	return db, nil
}

// -----------------------------------------------------------------------------

// setupAnalysis initializes the analysis facade
func setupAnalysis(config *models.MConfig, db interfaces.IDatabase) *analysis.AnalysisFacade {
	analysisLogger := logger.NewLogger(config, "Analysis")
	return analysis.NewAnalysisFacade(config, db, analysisLogger)
}

// -----------------------------------------------------------------------------

// setupSources creates one drop-folder source per configured descriptor and
// wraps them in a manager driven by runner
func setupSources(cfg *config.Config, runner interfaces.IExtractRunner, appLogger *logger.Logger) (*datasource.MultiSourceManager, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	sourceLogger := logger.NewLogger(cfg.MConfig, "ExtractSource")
	var sources []interfaces.IExtractSource
	for _, desc := range cfg.Sources {
		sources = append(sources, file.NewFileExtractSource(cfg.Engine.ExtractDir, desc.SourceID, sourceLogger))
		appLogger.Info("Added source: %s (window %ds, metric %s)", desc.SourceID, desc.WindowDuration, desc.Metric)
	}

	managerLogger := logger.NewLogger(cfg.MConfig, "MultiSourceManager")
	return datasource.NewMultiSourceManager(sources, cfg.Sources, runner, managerLogger), nil
}
