// Package cache holds the per-session view of tasks and messages that every
// rendering reads from.
//
// Entities are always stored whole. A push delta or a fetch carries the
// complete current representation of an entity, so writes replace by id and
// never merge fields.
package cache

import (
	"slices"
	"sync"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/stats"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

// Snapshot is one full reconciliation result. Stats and Employees are nil for
// identities that do not load them.
type Snapshot struct {
	Stats     *stats.Stats
	Employees []user.Employee
	Tasks     []task.Task
	Messages  []message.Message
}

type Cache struct {
	mu        sync.RWMutex
	tasks     *ordered[task.Task]
	messages  *ordered[message.Message]
	stats     *stats.Stats
	employees []user.Employee
	seq       uint64
	loaded    bool
	dropped   bool
}

func New() *Cache {
	return &Cache{
		tasks:    newOrdered(func(t task.Task) string { return t.ID }),
		messages: newOrdered(func(m message.Message) string { return m.ID }),
	}
}

// Mark returns the current write sequence. Pass it to ReplaceSince to keep
// deltas that arrive while a fetch is in flight.
func (c *Cache) Mark() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// ReplaceAll discards every cached entry and installs the snapshot in server order.
func (c *Cache) ReplaceAll(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(snap, c.seq)
}

// ReplaceSince installs the snapshot, except for entities upserted after mark:
// those were written by a delta newer than the snapshot and are kept as is.
func (c *Cache) ReplaceSince(snap Snapshot, mark uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(snap, mark)
}

func (c *Cache) replaceLocked(snap Snapshot, mark uint64) {
	if c.dropped {
		return
	}
	c.seq++
	c.tasks = c.tasks.rebuild(snap.Tasks, mark, c.seq)
	c.messages = c.messages.rebuild(snap.Messages, mark, c.seq)
	if snap.Stats != nil {
		s := *snap.Stats
		c.stats = &s
	} else {
		c.stats = nil
	}
	c.employees = slices.Clone(snap.Employees)
	c.loaded = true
}

// UpsertTask replaces the task with the same id in place, or inserts it at the front.
// It reports whether the task was new to the cache.
func (c *Cache) UpsertTask(t task.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return false
	}
	c.seq++
	return c.tasks.upsert(t, c.seq)
}

// UpsertMessage replaces the message with the same id in place, or inserts it at the front.
func (c *Cache) UpsertMessage(m message.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return false
	}
	c.seq++
	return c.messages.upsert(m, c.seq)
}

func (c *Cache) Tasks() []task.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tasks.values()
}

func (c *Cache) Task(id string) (task.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tasks.get(id)
}

func (c *Cache) Messages() []message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages.values()
}

func (c *Cache) Message(id string) (message.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages.get(id)
}

func (c *Cache) Stats() (stats.Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stats == nil {
		return stats.Stats{}, false
	}
	return *c.stats, true
}

func (c *Cache) Employees() []user.Employee {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.employees)
}

// Loaded reports whether at least one full reconciliation has been installed.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Drop tears the cache down. Writes after Drop are ignored, so a fetch that
// finishes after its session ended cannot repopulate it.
func (c *Cache) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = true
	c.loaded = false
	c.tasks = c.tasks.empty()
	c.messages = c.messages.empty()
	c.stats = nil
	c.employees = nil
}
