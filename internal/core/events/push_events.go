package events

import (
	"time"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/google/uuid"
)

// Event names as they appear on the push channel.
const (
	EventTypeNewTask       = "newTask"
	EventTypeTaskUpdated   = "taskUpdated"
	EventTypeTaskCompleted = "taskCompleted"
	EventTypeNewMessage    = "newMessage"
)

// TaskEvent carries the complete current representation of a task.
type TaskEvent struct {
	BaseEvent
	Task task.Task `json:"task"`
}

func (e *TaskEvent) Payload() interface{} {
	return e.Task
}

func NewTaskEvent(eventType string, t task.Task) *TaskEvent {
	return &TaskEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
		},
		Task: t,
	}
}

// MessageEvent carries the complete current representation of a message.
type MessageEvent struct {
	BaseEvent
	Message message.Message `json:"message"`
}

func (e *MessageEvent) Payload() interface{} {
	return e.Message
}

func NewMessageEvent(m message.Message) *MessageEvent {
	return &MessageEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNewMessage,
			Timestamp: time.Now(),
		},
		Message: m,
	}
}

// IsTaskEvent reports whether eventType carries a task payload.
func IsTaskEvent(eventType string) bool {
	switch eventType {
	case EventTypeNewTask, EventTypeTaskUpdated, EventTypeTaskCompleted:
		return true
	}
	return false
}
