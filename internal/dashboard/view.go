package dashboard

import (
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/cache"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/stats"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

const recentTaskCount = 5

// View is what one dashboard renders, derived from the cache on demand.
type View struct {
	Identity     user.Identity
	Capabilities auth.Capabilities

	Pending    []task.Task
	InProgress []task.Task
	Completed  []task.Task
	Recent     []task.Task
	// CompletionRate is the completed share of all tasks in whole percent,
	// rounded half up; 0 without tasks.
	CompletionRate int

	Received []message.Message
	Sent     []message.Message
	Unread   []message.Message

	// Stats and Employees are only loaded for roles that may view them.
	Stats     *stats.Stats
	Employees []user.Employee
}

func BuildView(identity user.Identity, c *cache.Cache) View {
	v := View{
		Identity:     identity,
		Capabilities: auth.CapabilitiesFor(identity.Role),
		Pending:      []task.Task{},
		InProgress:   []task.Task{},
		Completed:    []task.Task{},
		Received:     []message.Message{},
		Sent:         []message.Message{},
		Unread:       []message.Message{},
	}

	tasks := c.Tasks()
	for _, t := range tasks {
		switch t.Status {
		case task.StatusPending:
			v.Pending = append(v.Pending, t)
		case task.StatusInProgress:
			v.InProgress = append(v.InProgress, t)
		case task.StatusCompleted:
			v.Completed = append(v.Completed, t)
		}
	}
	v.Recent = tasks[:min(recentTaskCount, len(tasks))]
	if len(tasks) > 0 {
		v.CompletionRate = roundPercent(len(v.Completed), len(tasks))
	}

	for _, m := range c.Messages() {
		if m.IsFor(identity.ID) {
			v.Received = append(v.Received, m)
			if !m.Read {
				v.Unread = append(v.Unread, m)
			}
		}
		if m.IsFrom(identity.ID) {
			v.Sent = append(v.Sent, m)
		}
	}

	if v.Capabilities.Can(auth.ActionViewStats) {
		if s, ok := c.Stats(); ok {
			v.Stats = &s
		}
	}
	if v.Capabilities.Can(auth.ActionViewEmployees) {
		v.Employees = c.Employees()
	}
	return v
}

func roundPercent(part, total int) int {
	return (part*200 + total) / (2 * total)
}
