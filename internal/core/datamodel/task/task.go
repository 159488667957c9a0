package task

import (
	"errors"
	"time"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

var (
	ErrCompletedAtWithoutCompletion = errors.New("completedAt set on a task that is not completed")
	ErrCompletionWithoutCompletedAt = errors.New("completed task has no completedAt")
	ErrUnknownStatus                = errors.New("unknown task status")
)

// Rank orders statuses along the only allowed transition path.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

type FileRef struct {
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	UploadDate time.Time `json:"uploadDate"`
}

type Task struct {
	ID              string     `json:"_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          Status     `json:"status"`
	AssignedTo      user.Ref   `json:"assignedTo"`
	AssignedBy      user.Ref   `json:"assignedBy"`
	AssignedDate    time.Time  `json:"assignedDate"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Files           []FileRef  `json:"files"`
	CompletionFiles []FileRef  `json:"completionFiles"`
}

func (t Task) CanStart() bool {
	return t.Status == StatusPending
}

func (t Task) CanComplete() bool {
	return t.Status == StatusPending || t.Status == StatusInProgress
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

func (t Task) IsAssignedTo(userID string) bool {
	return t.AssignedTo.ID == userID
}

// CheckInvariants reports a backend representation that breaks the status/completedAt coupling.
func (t Task) CheckInvariants() error {
	if t.Status.Rank() < 0 {
		return ErrUnknownStatus
	}
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		return ErrCompletionWithoutCompletedAt
	}
	if t.Status != StatusCompleted && t.CompletedAt != nil {
		return ErrCompletedAtWithoutCompletion
	}
	return nil
}
