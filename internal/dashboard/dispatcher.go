package dashboard

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/cache"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/gateway"
)

// Backend is the mutation surface of the REST gateway.
type Backend interface {
	CreateEmployee(ctx context.Context, dto gateway.CreateEmployeeDTO) error
	RegisterUser(ctx context.Context, dto gateway.RegisterUserDTO) error
	DeleteEmployee(ctx context.Context, id string) error
	CreateTask(ctx context.Context, dto gateway.CreateTaskDTO) error
	DeleteTask(ctx context.Context, id string) error
	UpdateTaskStatus(ctx context.Context, id string, dto gateway.UpdateTaskStatusDTO) error
	CompleteTask(ctx context.Context, id string, dto gateway.CompleteTaskDTO) error
	SendMessage(ctx context.Context, dto gateway.SendMessageDTO) error
	MarkMessageRead(ctx context.Context, id string) error
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

const refreshFailedMessage = "Saved, but the dashboard could not be refreshed"

// Dispatcher runs user mutations. Nothing is applied to the cache
// optimistically: a mutation is one request followed by a full refresh.
type Dispatcher struct {
	identity    user.Identity
	permissions auth.PermissionChecker
	backend     Backend
	cache       *cache.Cache
	refresher   Refresher
	confirmer   Confirmer
	reporter    Reporter
	logger      *slog.Logger
}

func NewDispatcher(
	identity user.Identity,
	permissions auth.PermissionChecker,
	backend Backend,
	c *cache.Cache,
	refresher Refresher,
	confirmer Confirmer,
	reporter Reporter,
	logger *slog.Logger,
) *Dispatcher {
	if confirmer == nil {
		confirmer = NeverConfirm
	}
	if reporter == nil {
		reporter = LogReporter(logger)
	}
	return &Dispatcher{
		identity:    identity,
		permissions: permissions,
		backend:     backend,
		cache:       c,
		refresher:   refresher,
		confirmer:   confirmer,
		reporter:    reporter,
		logger:      logger,
	}
}

type validator interface {
	Validate() error
}

// mutation describes one exchange. Steps run in field order and any failure
// stops the exchange before the request is sent.
type mutation struct {
	name     string
	action   auth.Action
	fallback string
	dto      validator
	check    func() error
	confirm  string
	call     func(ctx context.Context) error
}

func (d *Dispatcher) run(ctx context.Context, m mutation) error {
	log := d.logger.With("mutation", m.name)

	if err := d.permissions.Authorize(d.identity, m.action); err != nil {
		return d.fail(log, m, err)
	}
	if m.dto != nil {
		if err := m.dto.Validate(); err != nil {
			return d.fail(log, m, err)
		}
	}
	if m.check != nil {
		if err := m.check(); err != nil {
			return d.fail(log, m, err)
		}
	}
	if m.confirm != "" && !d.confirmer.Confirm(ctx, m.confirm) {
		log.Info("mutation not confirmed")
		return errors.ErrNotConfirmed
	}

	if err := m.call(ctx); err != nil {
		return d.fail(log, m, err)
	}
	log.Info("mutation succeeded")

	if err := d.refresher.Refresh(ctx); err != nil {
		d.reporter.Report(Notice{
			Level:   NoticeWarning,
			Message: refreshFailedMessage,
			Err:     err,
		})
	}
	return nil
}

func (d *Dispatcher) fail(log *slog.Logger, m mutation, err error) error {
	log.Warn("mutation failed", "error", err)
	d.reporter.Report(Notice{
		Level:   NoticeError,
		Message: errors.UserMessage(err, m.fallback),
		Err:     err,
	})
	return err
}

func (d *Dispatcher) CreateEmployee(ctx context.Context, dto gateway.CreateEmployeeDTO) error {
	return d.run(ctx, mutation{
		name:     "create_employee",
		action:   auth.ActionCreateEmployee,
		fallback: "Error creating employee",
		dto:      dto,
		call:     func(ctx context.Context) error { return d.backend.CreateEmployee(ctx, dto) },
	})
}

func (d *Dispatcher) RegisterUser(ctx context.Context, dto gateway.RegisterUserDTO) error {
	return d.run(ctx, mutation{
		name:     "register_user",
		action:   auth.ActionRegisterUser,
		fallback: "Error registering user",
		dto:      dto,
		call:     func(ctx context.Context) error { return d.backend.RegisterUser(ctx, dto) },
	})
}

// DeleteEmployee asks for confirmation first. The backend also removes the
// employee's tasks and messages; the refresh picks that up.
func (d *Dispatcher) DeleteEmployee(ctx context.Context, id string) error {
	name := id
	for _, e := range d.cache.Employees() {
		if e.ID == id {
			name = e.Name
			break
		}
	}
	return d.run(ctx, mutation{
		name:     "delete_employee",
		action:   auth.ActionDeleteEmployee,
		fallback: "Error deleting employee",
		check:    requireID(id),
		confirm:  "Delete employee " + name + " with all their tasks and messages?",
		call:     func(ctx context.Context) error { return d.backend.DeleteEmployee(ctx, id) },
	})
}

func (d *Dispatcher) CreateTask(ctx context.Context, dto gateway.CreateTaskDTO) error {
	return d.run(ctx, mutation{
		name:     "create_task",
		action:   auth.ActionCreateTask,
		fallback: "Error creating task",
		dto:      dto,
		call:     func(ctx context.Context) error { return d.backend.CreateTask(ctx, dto) },
	})
}

func (d *Dispatcher) DeleteTask(ctx context.Context, id string) error {
	title := id
	if t, ok := d.cache.Task(id); ok {
		title = t.Title
	}
	return d.run(ctx, mutation{
		name:     "delete_task",
		action:   auth.ActionDeleteTask,
		fallback: "Error deleting task",
		check:    requireID(id),
		confirm:  "Delete task " + title + "?",
		call:     func(ctx context.Context) error { return d.backend.DeleteTask(ctx, id) },
	})
}

// UpdateTaskStatus only moves the caller's own task from pending to in progress.
// Completion goes through CompleteTask.
func (d *Dispatcher) UpdateTaskStatus(ctx context.Context, id string, dto gateway.UpdateTaskStatusDTO) error {
	return d.run(ctx, mutation{
		name:     "update_task_status",
		action:   auth.ActionUpdateTaskStatus,
		fallback: "Error updating task",
		dto:      dto,
		check: func() error {
			t, err := d.ownTask(id)
			if err != nil {
				return err
			}
			if dto.Status != task.StatusInProgress || !t.CanStart() {
				return errors.ErrInvalidTaskStatus
			}
			return nil
		},
		call: func(ctx context.Context) error { return d.backend.UpdateTaskStatus(ctx, id, dto) },
	})
}

func (d *Dispatcher) StartTask(ctx context.Context, id string) error {
	return d.UpdateTaskStatus(ctx, id, gateway.UpdateTaskStatusDTO{Status: task.StatusInProgress})
}

func (d *Dispatcher) CompleteTask(ctx context.Context, id string, dto gateway.CompleteTaskDTO) error {
	return d.run(ctx, mutation{
		name:     "complete_task",
		action:   auth.ActionCompleteTask,
		fallback: "Error completing task",
		dto:      dto,
		check: func() error {
			t, err := d.ownTask(id)
			if err != nil {
				return err
			}
			if !t.CanComplete() {
				return errors.ErrInvalidTaskStatus
			}
			return nil
		},
		call: func(ctx context.Context) error { return d.backend.CompleteTask(ctx, id, dto) },
	})
}

func (d *Dispatcher) SendMessage(ctx context.Context, dto gateway.SendMessageDTO) error {
	return d.run(ctx, mutation{
		name:     "send_message",
		action:   auth.ActionSendMessage,
		fallback: "Error sending message",
		dto:      dto,
		call:     func(ctx context.Context) error { return d.backend.SendMessage(ctx, dto) },
	})
}

// Reply answers a cached message: the original sender becomes the receiver and
// the subject gets a single "Re: " prefix.
func (d *Dispatcher) Reply(ctx context.Context, messageID, content string) error {
	original, ok := d.cache.Message(messageID)
	if !ok {
		return d.fail(d.logger.With("mutation", "reply"), mutation{fallback: "Error sending reply"}, errors.ErrMessageNotFound)
	}
	dto := gateway.SendMessageDTO{
		Receiver: original.Sender.ID,
		Subject:  original.ReplySubject(),
		Content:  content,
	}
	return d.run(ctx, mutation{
		name:     "reply",
		action:   auth.ActionSendMessage,
		fallback: "Error sending reply",
		dto:      dto,
		call:     func(ctx context.Context) error { return d.backend.SendMessage(ctx, dto) },
	})
}

// MarkRead is a no-op for a message that is already read.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) error {
	if m, ok := d.cache.Message(id); ok && m.Read && m.IsFor(d.identity.ID) {
		d.logger.Debug("message already read", "message_id", id)
		return nil
	}
	return d.run(ctx, mutation{
		name:     "mark_message_read",
		action:   auth.ActionMarkMessageRead,
		fallback: "Error updating message",
		check: func() error {
			m, ok := d.cache.Message(id)
			if !ok {
				return errors.ErrMessageNotFound
			}
			if !m.IsFor(d.identity.ID) {
				return errors.ErrNotReceiver
			}
			return nil
		},
		call: func(ctx context.Context) error { return d.backend.MarkMessageRead(ctx, id) },
	})
}

func (d *Dispatcher) ownTask(id string) (task.Task, error) {
	t, ok := d.cache.Task(id)
	if !ok {
		return task.Task{}, errors.ErrTaskNotFound
	}
	if !t.IsAssignedTo(d.identity.ID) {
		return task.Task{}, errors.ErrNotTaskOwner
	}
	return t, nil
}

func requireID(id string) func() error {
	return func() error {
		if id == "" {
			return errors.NewValidationFieldError("id", "id is required", errors.ErrCodeValidationFailed)
		}
		return nil
	}
}
