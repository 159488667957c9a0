// Package notify delivers user-facing notifications for newly assigned tasks
// and newly received messages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
)

type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) error
}

type NotifierFunc func(ctx context.Context, n notification.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n notification.Notification) error {
	return f(ctx, n)
}

// Discard accepts and drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, notification.Notification) error { return nil })

func NewTaskNotification(identityID string, t task.Task) notification.Notification {
	return notification.Notification{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Kind:       notification.KindNewTask,
		Title:      "New task assigned",
		Body:       fmt.Sprintf("%s (from %s)", t.Title, t.AssignedBy.Name),
		EntityID:   t.ID,
		CreatedAt:  time.Now().UTC(),
	}
}

func NewMessageNotification(identityID string, m message.Message) notification.Notification {
	return notification.Notification{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Kind:       notification.KindNewMessage,
		Title:      "New message from " + m.Sender.Name,
		Body:       m.Subject,
		EntityID:   m.ID,
		CreatedAt:  time.Now().UTC(),
	}
}

// Gated forwards only while permission is granted. A missing permission
// suppresses the notification and is not an error.
type Gated struct {
	granted bool
	next    Notifier
}

func NewGated(granted bool, next Notifier) *Gated {
	return &Gated{granted: granted, next: next}
}

func (g *Gated) Notify(ctx context.Context, n notification.Notification) error {
	if !g.granted {
		return nil
	}
	return g.next.Notify(ctx, n)
}

// Multi delivers to every notifier and joins their failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n notification.Notification) error {
	var errs []error
	for _, next := range m {
		if err := next.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Writer prints one line per notification.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Notify(_ context.Context, n notification.Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.w, "[%s] %s: %s\n", n.CreatedAt.Local().Format(time.Kitchen), n.Title, n.Body)
	return err
}
