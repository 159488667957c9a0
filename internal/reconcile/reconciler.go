// Package reconcile applies push deltas and full refreshes to a session's
// Entity Cache.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/taskdesk/internal/cache"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/core/events"
	"github.com/frahmantamala/taskdesk/internal/notify"
)

type Fetcher interface {
	LoadAll(ctx context.Context, role user.Role) (*cache.Snapshot, error)
}

type Reconciler struct {
	identity user.Identity
	cache    *cache.Cache
	fetcher  Fetcher
	notifier notify.Notifier
	logger   *slog.Logger

	// refreshMu keeps one refresh in flight, so an older snapshot never lands
	// after a newer one.
	refreshMu sync.Mutex
	wg        sync.WaitGroup

	noticeMu sync.RWMutex
	notice   func(error)
}

func New(identity user.Identity, c *cache.Cache, fetcher Fetcher, notifier notify.Notifier, logger *slog.Logger) *Reconciler {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Reconciler{
		identity: identity,
		cache:    c,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger.With("identity_id", identity.ID),
	}
}

// OnRefreshFailure sets the callback for refreshes nobody waits on, such as
// the one a completed task triggers.
func (r *Reconciler) OnRefreshFailure(fn func(error)) {
	r.noticeMu.Lock()
	defer r.noticeMu.Unlock()
	r.notice = fn
}

// Refresh loads everything the identity may see and installs it. On failure the
// cache keeps its previous content. Deltas applied while the fetch is in
// flight are newer than the snapshot and survive it.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	mark := r.cache.Mark()
	snap, err := r.fetcher.LoadAll(ctx, r.identity.Role)
	if err != nil {
		r.logger.Warn("refresh failed, keeping cached view", "error", err)
		return err
	}

	for _, t := range snap.Tasks {
		if err := t.CheckInvariants(); err != nil {
			r.logger.Warn("backend task breaks status invariants",
				"task_id", t.ID,
				"status", t.Status,
				"error", err)
		}
	}

	r.cache.ReplaceSince(*snap, mark)
	r.logger.Debug("cache refreshed",
		"tasks", len(snap.Tasks),
		"messages", len(snap.Messages))
	return nil
}

func (r *Reconciler) HandleNewTask(ctx context.Context, event events.Event) error {
	t, err := taskOf(event)
	if err != nil {
		return err
	}
	if !r.applyTask(event.EventType(), t) {
		return nil
	}
	r.notify(ctx, notify.NewTaskNotification(r.identity.ID, t))
	return nil
}

func (r *Reconciler) HandleTaskUpdated(ctx context.Context, event events.Event) error {
	t, err := taskOf(event)
	if err != nil {
		return err
	}
	r.applyTask(event.EventType(), t)
	return nil
}

// HandleTaskCompleted applies the delta and then refreshes in the background:
// stats are computed by the backend and cannot be derived from the delta.
func (r *Reconciler) HandleTaskCompleted(ctx context.Context, event events.Event) error {
	t, err := taskOf(event)
	if err != nil {
		return err
	}
	if !r.applyTask(event.EventType(), t) {
		return nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Refresh(ctx); err != nil {
			// The session is closing; its cache is discarded with it.
			if ctx.Err() != nil {
				r.logger.Debug("background refresh abandoned", "task_id", t.ID, "error", err)
				return
			}
			r.reportRefreshFailure(err)
		}
	}()
	return nil
}

func (r *Reconciler) HandleNewMessage(ctx context.Context, event events.Event) error {
	me, ok := event.(*events.MessageEvent)
	if !ok {
		r.logger.Error("invalid event type for message handler", "event_type", event.EventType())
		return fmt.Errorf("expected MessageEvent, got %T", event)
	}
	m := me.Message

	if !m.IsFor(r.identity.ID) {
		r.logger.Debug("discarding message delta addressed to another identity",
			"message_id", m.ID,
			"receiver_id", m.Receiver.ID)
		return nil
	}
	if r.unreadsReadMessage(m) {
		r.logger.Debug("discarding message delta that would mark a read message unread", "message_id", m.ID)
		return nil
	}

	r.cache.UpsertMessage(m)
	r.notify(ctx, notify.NewMessageNotification(r.identity.ID, m))
	return nil
}

// Wait blocks until background refreshes have finished.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeNewTask, r.HandleNewTask)
	eventBus.Subscribe(events.EventTypeTaskUpdated, r.HandleTaskUpdated)
	eventBus.Subscribe(events.EventTypeTaskCompleted, r.HandleTaskCompleted)
	eventBus.Subscribe(events.EventTypeNewMessage, r.HandleNewMessage)

	r.logger.Debug("reconciler event handlers registered",
		"handlers", []string{
			events.EventTypeNewTask,
			events.EventTypeTaskUpdated,
			events.EventTypeTaskCompleted,
			events.EventTypeNewMessage,
		})
}

// applyTask upserts a task delta the identity is allowed to see and reports
// whether it was admitted. Employees only ever hold their own tasks.
func (r *Reconciler) applyTask(eventType string, t task.Task) bool {
	if !r.identity.IsAdmin() && !t.IsAssignedTo(r.identity.ID) {
		r.logger.Debug("discarding task delta assigned to another identity",
			"event_type", eventType,
			"task_id", t.ID,
			"assignee_id", t.AssignedTo.ID)
		return false
	}

	if prev, ok := r.cache.Task(t.ID); ok && t.Status.Rank() < prev.Status.Rank() {
		r.logger.Warn("task delta moves status backwards, applying last delta",
			"task_id", t.ID,
			"from", prev.Status,
			"to", t.Status)
	}
	if err := t.CheckInvariants(); err != nil {
		r.logger.Warn("task delta breaks status invariants", "task_id", t.ID, "error", err)
	}

	r.cache.UpsertTask(t)
	return true
}

func (r *Reconciler) unreadsReadMessage(m message.Message) bool {
	prev, ok := r.cache.Message(m.ID)
	return ok && prev.Read && !m.Read
}

func (r *Reconciler) notify(ctx context.Context, n notification.Notification) {
	if err := r.notifier.Notify(ctx, n); err != nil {
		r.logger.Warn("notification not delivered",
			"kind", n.Kind,
			"entity_id", n.EntityID,
			"error", err)
	}
}

func (r *Reconciler) reportRefreshFailure(err error) {
	r.noticeMu.RLock()
	fn := r.notice
	r.noticeMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func taskOf(event events.Event) (task.Task, error) {
	te, ok := event.(*events.TaskEvent)
	if !ok {
		return task.Task{}, fmt.Errorf("expected TaskEvent for %s, got %T", event.EventType(), event)
	}
	return te.Task, nil
}
