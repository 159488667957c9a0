package dashboard_test

import (
	"context"
	"sync"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
)

type notices struct {
	mu  sync.Mutex
	got []dashboard.Notice
}

func (n *notices) Report(notice dashboard.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notice)
}

func (n *notices) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.got))
	for i, x := range n.got {
		out[i] = x.Message
	}
	return out
}

type delivered struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (d *delivered) Notify(_ context.Context, n notification.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, n)
	return nil
}

func (d *delivered) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.got))
	for i, n := range d.got {
		out[i] = n.Kind
	}
	return out
}

type prompts struct {
	mu     sync.Mutex
	answer bool
	asked  []string
}

func (p *prompts) Confirm(_ context.Context, prompt string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, prompt)
	return p.answer
}
