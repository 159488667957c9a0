package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/notify"
	"github.com/frahmantamala/taskdesk/internal/notify/sqlite"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the dashboard live and print notifications as they arrive",
	Long: `Open the push channel for the session identity, apply task and message
updates as they arrive and print a notification for every new task or message.
Notifications are also kept in the local notification log.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	log := logger.LoggerWrapper()
	out := cmd.OutOrStdout()

	db, err := openNotificationLog(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	queue := notify.NewQueue(
		notify.NewGated(cfg.Notifications.Enabled, notify.Multi{
			notify.NewWriter(out),
			sqlite.NewRepository(db),
		}),
		notify.QueueConfig{MaxWorkers: 1, QueueSize: cfg.Notifications.QueueSize},
		log,
	)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	session := dashboard.NewSession(dashboard.Options{
		Client:    newClient(cfg),
		Push:      pushConfig(cfg),
		Live:      true,
		Notifier:  queue,
		Confirmer: dashboard.NeverConfirm,
		Reporter:  dashboard.WriterReporter(cmd.ErrOrStderr()),
		Logger:    log,
	})
	if err := session.Start(ctx); err != nil {
		queue.Shutdown(context.Background())
		return err
	}
	printSummary(out, session)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var tick <-chan time.Time
	if watchInterval > 0 {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	disconnected := session.Disconnected()
	if !session.Live() {
		disconnected = nil
	}

loop:
	for {
		select {
		case sig := <-sigChan:
			log.Info("Received signal, shutting down...", "signal", sig)
			break loop
		case <-ctx.Done():
			break loop
		case <-disconnected:
			log.Warn("push channel closed, continuing over REST only")
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: live updates stopped")
			disconnected = nil
		case <-tick:
			if err := session.Refresh(ctx); err == nil {
				printSummary(out, session)
			}
		}
	}

	cancel()
	session.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	queue.Shutdown(shutdownCtx)
	return nil
}

func printSummary(w io.Writer, s *dashboard.Session) {
	view, err := s.View()
	if err != nil {
		return
	}
	fmt.Fprintf(w, "%s: %d pending, %d in progress, %d completed (%d%%), %d unread\n",
		view.Identity.Name, len(view.Pending), len(view.InProgress), len(view.Completed),
		view.CompletionRate, len(view.Unread))
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "also reload the whole view this often (0 disables)")
}
