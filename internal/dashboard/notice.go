package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a non-fatal failure shown to the user.
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

type Reporter interface {
	Report(n Notice)
}

type ReporterFunc func(n Notice)

func (f ReporterFunc) Report(n Notice) {
	f(n)
}

// LogReporter records notices in the log only.
func LogReporter(logger *slog.Logger) Reporter {
	return ReporterFunc(func(n Notice) {
		logger.Warn("dashboard notice", "level", n.Level, "message", n.Message, "error", n.Err)
	})
}

// WriterReporter prints one line per notice.
func WriterReporter(w io.Writer) Reporter {
	var mu sync.Mutex
	return ReporterFunc(func(n Notice) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
	})
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)
