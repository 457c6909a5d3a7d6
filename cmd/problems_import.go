package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/problems"
)

var problemsImportCmd = &cobra.Command{
	Use:   "import <catalog.json>",
	Short: "Import a problem catalog",
	Long: `Reads a JSON problem catalog and upserts its problems and connections.
Problems named only as connection endpoints are created as stubs; re-importing
fills empty fields but never overwrites conflicting non-empty ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("problems"); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open catalog %s", args[0])
		}
		defer f.Close()

		reg, err := problems.DecodeCatalog(f)
		if err != nil {
			return err
		}

		st, cleanup, err := platformStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		res, err := st.ImportRegistry(ctx, reg)
		if err != nil {
			return eris.Wrap(err, "problems import")
		}

		zap.L().Info("catalog imported",
			zap.Int64("problems", res.Problems),
			zap.Int64("connections", res.Connections),
		)
		fmt.Printf("imported %d problems, %d connections\n", res.Problems, res.Connections)
		return nil
	},
}

func init() { problemsCmd.AddCommand(problemsImportCmd) }
