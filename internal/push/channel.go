// Package push keeps the one live push connection of a dashboard session and
// turns its frames into events on the session's bus.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/events"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

var ErrIdentityMismatch = errors.New("push channel already open for another identity")

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type Config struct {
	URL         string
	Origin      string
	Token       string
	DialTimeout time.Duration
}

// Channel owns at most one connection at a time. Frames are published on the
// bus from a single goroutine, in arrival order.
type Channel struct {
	config Config
	bus    *events.EventBus
	logger *slog.Logger

	mu         sync.Mutex
	ws         *websocket.Conn
	identityID string
	done       chan struct{}
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewChannel(config Config, bus *events.EventBus, logger *slog.Logger) *Channel {
	return &Channel{
		config: config,
		bus:    bus,
		logger: logger,
	}
}

// Open connects and joins as identityID. Opening again for the same identity
// while connected is a no-op; opening for another identity fails.
func (c *Channel) Open(ctx context.Context, identityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		if c.identityID == identityID {
			return nil
		}
		return ErrIdentityMismatch
	}

	wsConfig, err := websocket.NewConfig(c.config.URL, c.config.Origin)
	if err != nil {
		return internal.NewInternalError("invalid push channel address", err)
	}
	if c.config.Token != "" {
		wsConfig.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	dialCtx, cancelDial := internal.WithTimeout(ctx, c.config.DialTimeout)
	defer cancelDial()
	ws, err := wsConfig.DialContext(dialCtx)
	if err != nil {
		c.logger.Warn("push channel dial failed", "url", c.config.URL, "error", err)
		return internal.NewNetworkError("push channel unreachable", err)
	}

	join, err := NewEnvelope(EventJoin, identityID)
	if err == nil {
		err = websocket.JSON.Send(ws, join)
	}
	if err != nil {
		_ = ws.Close()
		return internal.NewNetworkError("push channel join failed", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx = logger.WithLogger(loopCtx, c.logger.With("identity_id", identityID))

	c.ws = ws
	c.identityID = identityID
	c.done = make(chan struct{})
	c.cancel = cancel

	c.wg.Add(1)
	go c.readLoop(loopCtx, ws, c.done)

	c.logger.Info("push channel opened", "identity_id", identityID)
	return nil
}

// Close releases the connection and waits for the read loop to stop. It is
// safe to call any number of times.
func (c *Channel) Close() {
	c.mu.Lock()
	ws, cancel := c.ws, c.cancel
	c.ws = nil
	c.identityID = ""
	c.cancel = nil
	c.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

func (c *Channel) IdentityID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identityID
}

// Done is closed when the current connection ends, by Close or by the server.
// It is already closed when nothing is open.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil || c.done == nil {
		return closedDone
	}
	return c.done
}

func (c *Channel) readLoop(ctx context.Context, ws *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)
	log := logger.From(ctx)

	for {
		var frame []byte
		if err := websocket.Message.Receive(ws, &frame); err != nil {
			c.mu.Lock()
			remote := c.ws == ws
			if remote {
				c.ws = nil
				c.identityID = ""
				if c.cancel != nil {
					c.cancel()
					c.cancel = nil
				}
			}
			c.mu.Unlock()

			if remote {
				log.Warn("push channel disconnected", "error", err)
			} else {
				log.Debug("push channel closed")
			}
			return
		}

		event, err := decodeFrame(frame)
		if err != nil {
			log.Warn("discarding malformed push frame", "error", err)
			continue
		}
		if event == nil {
			log.Debug("ignoring unknown push event")
			continue
		}
		// Handler failures are logged by the bus and never stop the channel.
		_ = c.bus.PublishSync(ctx, event)
	}
}

// decodeFrame returns nil without error for event names the dashboard does not handle.
func decodeFrame(frame []byte) (events.Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}

	switch {
	case events.IsTaskEvent(env.Event):
		var t task.Task
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if t.ID == "" {
			return nil, fmt.Errorf("%s payload has no id", env.Event)
		}
		return events.NewTaskEvent(env.Event, t), nil
	case env.Event == events.EventTypeNewMessage:
		var m message.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if m.ID == "" {
			return nil, fmt.Errorf("%s payload has no id", env.Event)
		}
		return events.NewMessageEvent(m), nil
	}
	return nil, nil
}
