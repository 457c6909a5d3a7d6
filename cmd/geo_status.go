package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geoStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show census load history",
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

		status, err := st.LoadStatus(ctx)
		if err != nil {
			return eris.Wrap(err, "geo status")
		}

		if len(status) == 0 {
			fmt.Println("No census data loaded yet")
			return nil
		}

		fmt.Printf("%-12s %-12s %12s %12s %s\n", "File", "Table", "Rows", "Duration", "Loaded At")
		fmt.Println(strings.Repeat("-", 70))
		for _, s := range status {
			fmt.Printf("%-12s %-12s %12d %10dms %s\n",
				s.File, s.Table, s.RowCount, s.DurationMs,
				s.LoadedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() { geoCmd.AddCommand(geoStatusCmd) }
