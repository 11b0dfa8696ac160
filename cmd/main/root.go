package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/default.yaml"

// -----------------------------------------------------------------------------

func NewRootCommand() *cobra.Command {
	var configPath string

	command := &cobra.Command{
		Use:           "series-canon",
		Short:         "Canonicalize provider time series into daily aggregates",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	command.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file")

	command.AddCommand(NewServeCommand(&configPath))
	command.AddCommand(NewRunCommand(&configPath))
	command.AddCommand(NewBackfillCommand(&configPath))
	return command
}

// -----------------------------------------------------------------------------

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
