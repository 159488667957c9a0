package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/sandbox"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

var (
	sandboxAddr     string
	sandboxSecret   string
	sandboxPassword string
	sandboxNoSeed   bool
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run an in-memory task backend for local use",
	Long: `Serve the task backend's REST and push surface from memory, seeded with an
admin and an employee account. Everything is lost on exit.`,
	RunE: runSandbox,
}

type seedAccount struct {
	Name  string
	Email string
	Role  user.Role
}

var seedAccounts = []seedAccount{
	{Name: "Padil Admin", Email: "padil@mail.com", Role: user.RoleAdmin},
	{Name: "Fadhil", Email: "fadhil@mail.com", Role: user.RoleEmployee},
}

// seedSandbox creates the seed accounts plus one task and one message between
// them. Accounts that already exist are left alone.
func seedSandbox(b *sandbox.Backend, password string, out io.Writer) ([]user.Employee, error) {
	seeded := make([]user.Employee, 0, len(seedAccounts))
	for _, a := range seedAccounts {
		e, err := b.Store.AddUser(a.Name, a.Email, password, a.Role)
		if err != nil {
			fmt.Fprintf(out, "%s user already exists; skipping\n", a.Email)
			continue
		}
		fmt.Fprintf(out, "Seeded %s user: %s\n", a.Role, a.Email)
		seeded = append(seeded, e)
	}
	if len(seeded) < 2 {
		return seeded, nil
	}

	admin, employee := identityOf(seeded[0]), seeded[1]
	if _, err := b.Store.CreateTask(admin, "Prepare weekly report", "Summarize last week's completed work.", employee.ID, nil); err != nil {
		return seeded, fmt.Errorf("seed task: %w", err)
	}
	if _, err := b.Store.SendMessage(admin, employee.ID, "Welcome", "Your first task is on the dashboard."); err != nil {
		return seeded, fmt.Errorf("seed message: %w", err)
	}
	return seeded, nil
}

func identityOf(e user.Employee) user.Identity {
	return user.Identity{ID: e.ID, Name: e.Name, Email: e.Email, Role: e.Role}
}

func runSandbox(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	logger.Init(cfg.Logging.Format, cfg.Logging.Level)
	log := logger.LoggerWrapper()
	out := cmd.OutOrStdout()

	backend := sandbox.New(sandboxSecret, log)
	if !sandboxNoSeed {
		seeded, err := seedSandbox(backend, sandboxPassword, out)
		if err != nil {
			return err
		}
		for _, e := range seeded {
			fmt.Fprintf(out, "%s token: %s\n", e.Email, backend.TokenFor(e))
		}
	}

	server := &http.Server{
		Addr:              sandboxAddr,
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(server, log)
}

// serve runs server until SIGINT or SIGTERM, then shuts it down gracefully.
func serve(server *http.Server, log *slog.Logger) error {
	log.Info("Starting HTTP server", "address", server.Addr)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

func init() {
	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", ":5000", "listen address")
	sandboxCmd.Flags().StringVar(&sandboxSecret, "secret", "sandbox-secret", "token signing secret")
	sandboxCmd.Flags().StringVar(&sandboxPassword, "password", "password", "password of the seeded accounts")
	sandboxCmd.Flags().BoolVar(&sandboxNoSeed, "no-seed", false, "start without seeded accounts")
}
