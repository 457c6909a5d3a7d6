package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/census"
)

var geoLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load census files into the store",
	Long: `Parses the fetched census files and loads them into the configured store.
Each file is truncated before insert, so rerunning a load replaces rather
than duplicates. Use --files to restrict to specific files.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geo"); err != nil {
			return err
		}

		st, cleanup, err := censusStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		filesStr, _ := cmd.Flags().GetString("files")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := census.LoadOptions{
			DataDir:   cfg.Geo.DataDir,
			BatchSize: batchSize,
			DryRun:    dryRun,
		}
		if opts.BatchSize == 0 {
			opts.BatchSize = cfg.Geo.BatchSize
		}
		if filesStr != "" {
			opts.Files = splitAndTrim(filesStr)
		}

		zap.L().Info("starting load",
			zap.Strings("files", opts.Files),
			zap.Int("batch_size", opts.BatchSize),
			zap.Bool("dry_run", opts.DryRun),
		)

		results, err := census.Load(ctx, st, opts)
		if err != nil {
			return eris.Wrap(err, "geo load")
		}

		for _, r := range results {
			fmt.Printf("%-10s %-12s %10d rows  %s\n", r.Name, r.Table, r.Rows, r.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	geoLoadCmd.Flags().String("files", "", "comma-separated file names (default: all, in load order)")
	geoLoadCmd.Flags().Int("batch-size", 0, "insert batch size (default from config)")
	geoLoadCmd.Flags().Bool("dry-run", false, "parse and validate without loading")
	geoCmd.AddCommand(geoLoadCmd)
}
