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

var geoJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Build the denormalized geo table",
	Long: `Rebuilds the denormalized table joining every geographic header row with
its population counts. The join is a left outer join on the logical record
number: every header row survives, and rows with no population record carry
nulls rather than fabricated zeros.

With --sumlev or --state, prints matching rows after the build.`,
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

		zap.L().Info("building joined table")
		if err := st.BuildJoined(ctx); err != nil {
			return eris.Wrap(err, "geo join")
		}

		n, err := st.RowCount(ctx, census.JoinedTable)
		if err != nil {
			return eris.Wrap(err, "geo join: count")
		}
		fmt.Printf("built %s: %d rows\n", census.JoinedTable, n)

		sumlev, _ := cmd.Flags().GetString("sumlev")
		state, _ := cmd.Flags().GetString("state")
		limit, _ := cmd.Flags().GetInt("limit")
		if sumlev == "" && state == "" {
			return nil
		}

		rows, err := st.QueryJoined(ctx, census.JoinFilter{
			Sumlev:    sumlev,
			StateAbbr: state,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "geo join: query")
		}

		fmt.Printf("%-10s %-6s %-3s %-40s %12s %12s\n",
			"Logrecno", "Sumlev", "St", "Name", "Pop100", "HU100")
		for _, r := range rows {
			fmt.Printf("%-10d %-6s %-3s %-40s %12d %12d\n",
				r.Logrecno, r.Sumlev, r.Stusab, r.Name, r.Pop100, r.HU100)
		}
		return nil
	},
}

func init() {
	geoJoinCmd.Flags().String("sumlev", "", "print rows at this summary level after the build")
	geoJoinCmd.Flags().String("state", "", "print rows for this state abbreviation after the build")
	geoJoinCmd.Flags().Int("limit", 20, "max rows to print")
	geoCmd.AddCommand(geoJoinCmd)
}
