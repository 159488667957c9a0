// Package dashboard ties one authenticated identity to its cache, push
// channel, reconciler and mutation dispatcher for the life of a session.
package dashboard

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/cache"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/core/events"
	"github.com/frahmantamala/taskdesk/internal/gateway"
	"github.com/frahmantamala/taskdesk/internal/notify"
	"github.com/frahmantamala/taskdesk/internal/push"
	"github.com/frahmantamala/taskdesk/internal/reconcile"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

var (
	ErrSessionClosed     = stderrors.New("dashboard session is closed")
	ErrSessionStarted    = stderrors.New("dashboard session already started")
	ErrSessionNotStarted = stderrors.New("dashboard session not started")
)

const loadFailedMessage = "Error loading dashboard"

type Options struct {
	Client *gateway.Client
	Push   push.Config
	// Live opens the push channel. Without it the session is refreshed over REST only.
	Live        bool
	Notifier    notify.Notifier
	Confirmer   Confirmer
	Reporter    Reporter
	Permissions auth.PermissionChecker
	Logger      *slog.Logger
}

// Session is one mounted dashboard. Start mounts it, Close unmounts it; a
// closed session cannot be started again.
type Session struct {
	opts   Options
	logger *slog.Logger

	mu         sync.RWMutex
	state      auth.SessionState
	started    bool
	closed     bool
	identity   user.Identity
	cache      *cache.Cache
	bus        *events.EventBus
	channel    *push.Channel
	reconciler *reconcile.Reconciler
	dispatcher *Dispatcher
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logger.LoggerWrapper()
	}
	if opts.Reporter == nil {
		opts.Reporter = LogReporter(opts.Logger)
	}
	if opts.Permissions == nil {
		opts.Permissions = auth.NewPermissionChecker()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	return &Session{
		opts:   opts,
		logger: opts.Logger,
		state:  auth.SessionLoading,
	}
}

// Start resolves the identity from the session token, loads the first view and
// opens the push channel. A failed first load or an unreachable push channel
// is reported and does not fail Start; an unusable token does. The session
// stays in the loading state until Start returns.
func (s *Session) Start(ctx context.Context) error {
	rec, log, err := s.mount()
	if err != nil {
		return err
	}

	if err := rec.Refresh(ctx); err != nil {
		s.opts.Reporter.Report(Notice{Level: NoticeError, Message: errors.UserMessage(err, loadFailedMessage), Err: err})
	}

	if s.opts.Live {
		if err := s.openChannel(ctx, log); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.state = auth.SessionAuthenticated
	log.Info("dashboard session started", "live", s.channel != nil && s.channel.IsOpen())
	return nil
}

// mount builds the session's components for the token's identity.
func (s *Session) mount() (*reconcile.Reconciler, *slog.Logger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	if s.started {
		return nil, nil, ErrSessionStarted
	}

	identity, err := auth.ParseIdentity(s.opts.Client.Token())
	if err != nil {
		s.state = auth.SessionUnauthenticated
		s.logger.Warn("session token rejected", "error", err)
		return nil, nil, err
	}

	log := s.logger.With("identity_id", identity.ID, "role", identity.Role)
	c := cache.New()
	bus := events.NewEventBus(log)
	rec := reconcile.New(identity, c, s.opts.Client, s.opts.Notifier, log)
	rec.OnRefreshFailure(func(err error) {
		s.opts.Reporter.Report(Notice{Level: NoticeError, Message: errors.UserMessage(err, loadFailedMessage), Err: err})
	})
	rec.RegisterEventHandlers(bus)

	s.identity = identity
	s.cache = c
	s.bus = bus
	s.reconciler = rec
	s.dispatcher = NewDispatcher(identity, s.opts.Permissions, s.opts.Client, c, rec, s.opts.Confirmer, s.opts.Reporter, log)
	s.started = true
	return rec, log, nil
}

// openChannel connects the session's single push channel. A session closed
// while the dial was in flight releases the connection again.
func (s *Session) openChannel(ctx context.Context, log *slog.Logger) error {
	pushConfig := s.opts.Push
	pushConfig.Token = s.opts.Client.Token()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	channel := push.NewChannel(pushConfig, s.bus, log)
	s.channel = channel
	identityID := s.identity.ID
	s.mu.Unlock()

	if err := channel.Open(ctx, identityID); err != nil {
		log.Warn("push channel unavailable, dashboard refreshes over REST only", "error", err)
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		channel.Close()
		return ErrSessionClosed
	}
	return nil
}

// Close releases the push channel, waits for background refreshes and drops
// the cache. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = auth.SessionUnauthenticated
	channel, rec, c, identityID := s.channel, s.reconciler, s.cache, s.identity.ID
	s.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
	if rec != nil {
		rec.Wait()
	}
	if c != nil {
		c.Drop()
	}
	s.logger.Info("dashboard session closed", "identity_id", identityID)
}

func (s *Session) State() auth.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Identity() user.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Decide runs the view gate for the session's current state.
func (s *Session) Decide(path string) auth.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return auth.Decide(s.state, s.identity, path)
}

// Refresh reloads the whole view. A failure is reported and the cached view kept.
func (s *Session) Refresh(ctx context.Context) error {
	rec, err := s.live()
	if err != nil {
		return err
	}
	if err := rec.Refresh(ctx); err != nil {
		s.opts.Reporter.Report(Notice{Level: NoticeError, Message: errors.UserMessage(err, loadFailedMessage), Err: err})
		return err
	}
	return nil
}

func (s *Session) Dispatcher() (*Dispatcher, error) {
	if _, err := s.live(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatcher, nil
}

func (s *Session) View() (View, error) {
	if _, err := s.live(); err != nil {
		return View{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildView(s.identity, s.cache), nil
}

func (s *Session) Cache() *cache.Cache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Live reports whether the push channel is connected.
func (s *Session) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel != nil && s.channel.IsOpen()
}

// Disconnected is closed when the push channel ends. Without a channel it is
// already closed.
func (s *Session) Disconnected() <-chan struct{} {
	s.mu.RLock()
	channel := s.channel
	s.mu.RUnlock()
	if channel == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return channel.Done()
}

func (s *Session) live() (*reconcile.Reconciler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if !s.started {
		return nil, ErrSessionNotStarted
	}
	return s.reconciler, nil
}
