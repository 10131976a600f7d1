package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskr/internal/config"
	"github.com/BuzzLyutic/taskr/internal/repo"
)

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Backend != config.BackendPostgres {
				return errors.New("migrate requires the postgres backend")
			}
			pool, err := connect(cmd.Context(), app.cfg.DatabaseURL, app.logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repo.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
