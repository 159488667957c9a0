package cmd

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/notify/sqlite"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Browse notifications delivered by watch",
}

var notificationLimit int

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest notifications for the session identity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		identity, err := auth.ParseIdentity(cfg.Session.Token)
		if err != nil {
			return err
		}

		db, err := openNotificationLog(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)

		ns, err := sqlite.NewRepository(db).ListByIdentity(commandContext(cmd), identity.ID, notificationLimit)
		if err != nil {
			return err
		}
		return printNotifications(cmd.OutOrStdout(), ns)
	},
}

// openNotificationLog opens the configured log and brings its schema up to date.
func openNotificationLog(cmd *cobra.Command, cfg *internal.Config) (*gorm.DB, error) {
	db, err := sqlite.Open(cfg.Notifications.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(commandContext(cmd), db); err != nil {
		closeDB(db)
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.LoggerWrapper().Error("Database close error", "error", err)
	}
}

func init() {
	notificationsListCmd.Flags().IntVarP(&notificationLimit, "limit", "n", sqlite.DefaultListLimit, "maximum number of notifications")
	notificationsCmd.AddCommand(notificationsListCmd)
}
