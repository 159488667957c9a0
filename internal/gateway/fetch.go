package gateway

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/taskdesk/internal/cache"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/stats"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

const (
	pathStats     = "/api/admin/stats"
	pathEmployees = "/api/admin/employees"
	pathTasks     = "/api/tasks"
	pathMessages  = "/api/messages"
)

// LoadAll fetches every collection the role sees. The requests run concurrently and
// the result is all or nothing: on any failure no snapshot is returned.
// Employee results are taken as the backend scoped them.
func (c *Client) LoadAll(ctx context.Context, role user.Role) (*cache.Snapshot, error) {
	var snap cache.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	if role == user.RoleAdmin {
		g.Go(func() error {
			s, err := c.Stats(gctx)
			if err != nil {
				return err
			}
			snap.Stats = s
			return nil
		})
		g.Go(func() error {
			employees, err := c.Employees(gctx)
			if err != nil {
				return err
			}
			snap.Employees = employees
			return nil
		})
	}
	g.Go(func() error {
		tasks, err := c.Tasks(gctx)
		if err != nil {
			return err
		}
		snap.Tasks = tasks
		return nil
	})
	g.Go(func() error {
		msgs, err := c.Messages(gctx)
		if err != nil {
			return err
		}
		snap.Messages = msgs
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.Warn("reconciliation fetch failed", "role", role, "error", err)
		return nil, err
	}

	c.logger.Debug("reconciliation fetch completed",
		"role", role,
		"tasks", len(snap.Tasks),
		"messages", len(snap.Messages),
		"employees", len(snap.Employees))
	return &snap, nil
}

func (c *Client) Stats(ctx context.Context) (*stats.Stats, error) {
	var s stats.Stats
	if err := c.getJSON(ctx, pathStats, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Employees(ctx context.Context) ([]user.Employee, error) {
	employees := []user.Employee{}
	if err := c.getJSON(ctx, pathEmployees, &employees); err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []user.Employee{}
	}
	return employees, nil
}

func (c *Client) Tasks(ctx context.Context) ([]task.Task, error) {
	tasks := []task.Task{}
	if err := c.getJSON(ctx, pathTasks, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

func (c *Client) Messages(ctx context.Context) ([]message.Message, error) {
	msgs := []message.Message{}
	if err := c.getJSON(ctx, pathMessages, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return msgs, nil
}
