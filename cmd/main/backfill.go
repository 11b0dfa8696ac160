package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"series-canon/src/config"
	"series-canon/src/data_source/file"
	"series-canon/src/logger"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func NewBackfillCommand(configPath *string) *cobra.Command {
	var (
		source   string
		fromFlag string
		toFlag   string
		path     string
	)

	command := &cobra.Command{
		Use:   "backfill",
		Short: "Replace a source's windows in [from, to) with an extract and recompute those days",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseRange(fromFlag, toFlag)
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return backfill(cmd.Context(), cfg, source, from, to, path, cmd.OutOrStdout())
		},
	}
	command.Flags().StringVar(&source, "source", "", "source to backfill")
	command.Flags().StringVar(&fromFlag, "from", "", "range start, inclusive (date or timestamp, UTC)")
	command.Flags().StringVar(&toFlag, "to", "", "range end, exclusive (date or timestamp, UTC)")
	command.Flags().StringVar(&path, "file", "", "extract file (.json or .ndjson)")
	for _, name := range []string{"source", "from", "to", "file"} {
		command.MarkFlagRequired(name)
	}
	return command
}

// -----------------------------------------------------------------------------

func parseRange(fromFlag, toFlag string) (time.Time, time.Time, error) {
	from, err := dateparse.ParseIn(fromFlag, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from '%s': %w", fromFlag, err)
	}
	to, err := dateparse.ParseIn(toFlag, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to '%s': %w", toFlag, err)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be before --to")
	}
	return from.UTC(), to.UTC(), nil
}

// -----------------------------------------------------------------------------

func backfill(ctx context.Context, cfg *config.Config, source string, from, to time.Time, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	desc, ok := cfg.Source(source)
	if !ok {
		return fmt.Errorf("source '%s' is not configured", source)
	}

	extract, err := file.ReadExtract(source, path)
	if err != nil {
		return err
	}

	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)
	db, err := setupDatabase(cfg.MConfig, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := setupAnalysis(cfg.MConfig, db).Backfill(ctx, desc, from, to, extract)
	if werr := writeJSON(out, report); werr != nil && err == nil {
		err = werr
	}
	return err
}
