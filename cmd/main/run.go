package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"series-canon/src/config"
	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func NewRunCommand(configPath *string) *cobra.Command {
	var source string

	command := &cobra.Command{
		Use:   "run",
		Short: "Process every pending extract once and print the run reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runOnce(cmd.Context(), cfg, source, cmd.OutOrStdout())
		},
	}
	command.Flags().StringVar(&source, "source", "", "only run this source")
	return command
}

// -----------------------------------------------------------------------------

func runOnce(ctx context.Context, cfg *config.Config, source string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)

	db, err := setupDatabase(cfg.MConfig, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	multiSource, err := setupSources(cfg, setupAnalysis(cfg.MConfig, db), appLogger)
	if err != nil {
		return err
	}

	results := make(map[string][]models.MRunReport)
	var runErr error
	if source != "" {
		results[source], runErr = multiSource.RunSource(ctx, source)
	} else {
		results, runErr = multiSource.RunAll(ctx)
	}

	if err := writeJSON(out, results); err != nil {
		return err
	}
	return runErr
}

// -----------------------------------------------------------------------------

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
