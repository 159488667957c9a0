package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/gateway"
	"github.com/frahmantamala/taskdesk/internal/push"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

func newClient(cfg *internal.Config) *gateway.Client {
	return gateway.NewClient(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.Session.Token,
		Timeout: cfg.API.Timeout,
	}, logger.LoggerWrapper())
}

func pushConfig(cfg *internal.Config) push.Config {
	return push.Config{
		URL:         cfg.PushURL(),
		Origin:      cfg.Push.Origin,
		DialTimeout: cfg.Push.DialTimeout,
	}
}

// promptConfirmer asks on out and reads the answer from in. Anything but "y"
// or "yes" declines.
func promptConfirmer(in io.Reader, out io.Writer) dashboard.Confirmer {
	reader := bufio.NewReader(in)
	return dashboard.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	})
}

func confirmerFor(cmd *cobra.Command) dashboard.Confirmer {
	if assumeYes {
		return dashboard.AlwaysConfirm
	}
	return promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// withSession runs fn against a started one-shot session: the view is loaded
// over REST and no push channel is opened.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *dashboard.Session) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	session := dashboard.NewSession(dashboard.Options{
		Client:    newClient(cfg),
		Push:      pushConfig(cfg),
		Confirmer: confirmerFor(cmd),
		Reporter:  dashboard.WriterReporter(cmd.ErrOrStderr()),
		Logger:    logger.LoggerWrapper(),
	})
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()

	return fn(ctx, session)
}

// withDispatcher is withSession for commands that mutate.
func withDispatcher(cmd *cobra.Command, fn func(ctx context.Context, d *dashboard.Dispatcher) error) error {
	return withSession(cmd, func(ctx context.Context, s *dashboard.Session) error {
		d, err := s.Dispatcher()
		if err != nil {
			return err
		}
		return fn(ctx, d)
	})
}

// openAttachments opens every path for a multipart upload. The returned
// closer releases all of them.
func openAttachments(paths []string) ([]gateway.Attachment, func(), error) {
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	attachments := make([]gateway.Attachment, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open attachment: %w", err)
		}
		files = append(files, f)
		attachments = append(attachments, gateway.Attachment{
			Filename: filepath.Base(p),
			Content:  f,
		})
	}
	return attachments, closeAll, nil
}
