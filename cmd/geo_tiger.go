package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/census"
)

var geoTigerCmd = &cobra.Command{
	Use:   "tiger",
	Short: "Load TIGER/Line place boundaries",
	Long: `Downloads Census TIGER/Line place shapefiles and loads their boundary
geometries (as WKB) into the place geometry table, keyed by place GEOID.

By default loads all 50 states + DC. Use --states to restrict.`,
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

		statesStr, _ := cmd.Flags().GetString("states")
		year, _ := cmd.Flags().GetInt("year")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if year == 0 {
			year = cfg.Geo.TigerYear
		}

		var fipsCodes []string
		if statesStr != "" {
			for _, abbr := range toUpper(splitAndTrim(statesStr)) {
				fips, ok := census.FIPSCodes[abbr]
				if !ok {
					return eris.Errorf("unknown state abbreviation %q", abbr)
				}
				fipsCodes = append(fipsCodes, fips)
			}
		} else {
			fipsCodes = census.AllStateFIPS()
		}

		opts := census.TigerOptions{
			Year:        year,
			StateFIPS:   fipsCodes,
			TempDir:     cfg.Geo.TempDir,
			BatchSize:   cfg.Geo.BatchSize,
			Concurrency: concurrency,
			HTTP:        newHTTPFetcher(),
		}

		zap.L().Info("starting place boundary load",
			zap.Int("year", opts.Year),
			zap.Int("states", len(fipsCodes)),
		)

		n, err := census.LoadPlaceGeometry(ctx, st, opts)
		if err != nil {
			return eris.Wrap(err, "geo tiger")
		}

		fmt.Printf("loaded %d place boundaries\n", n)
		return nil
	},
}

func init() {
	geoTigerCmd.Flags().String("states", "", "comma-separated state abbreviations (default: all 50 + DC)")
	geoTigerCmd.Flags().Int("year", 0, "TIGER/Line year (default from config, 2010)")
	geoTigerCmd.Flags().Int("concurrency", 3, "parallel state downloads")
	geoCmd.AddCommand(geoTigerCmd)
}
