package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal/notify/sqlite"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the notification log migrations",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	cfg, err := setup()
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.Notifications.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if migrateRollback {
		if err := sqlite.Rollback(ctx, db); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Rolled back the latest migration")
		return nil
	}

	if err := sqlite.Migrate(ctx, db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Notification log is up to date")
	return nil
}
