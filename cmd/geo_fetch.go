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
	"github.com/commonground-app/commonground/internal/fetcher"
)

var geoFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download census source files",
	Long: `Downloads the census reference tables, the national gazetteer, the CBSA
delineation workbook, and the SF1 national bundle into the data directory.
Files already present are skipped, so an interrupted fetch can resume.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geo"); err != nil {
			return err
		}

		filesStr, _ := cmd.Flags().GetString("files")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		opts := census.FetchOptions{
			DataDir:     cfg.Geo.DataDir,
			Concurrency: concurrency,
			HTTP:        newHTTPFetcher(),
			FTP: fetcher.NewFTPFetcher(fetcher.FTPOptions{
				Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			}),
		}
		if filesStr != "" {
			opts.Files = splitAndTrim(filesStr)
		}

		zap.L().Info("starting fetch",
			zap.String("data_dir", opts.DataDir),
			zap.Strings("files", opts.Files),
		)

		if err := census.FetchAll(ctx, opts); err != nil {
			return eris.Wrap(err, "geo fetch")
		}

		fmt.Println("fetch complete")
		return nil
	},
}

func init() {
	geoFetchCmd.Flags().String("files", "", "comma-separated source names (default: all)")
	geoFetchCmd.Flags().Int("concurrency", 3, "parallel downloads")
	geoCmd.AddCommand(geoFetchCmd)
}
