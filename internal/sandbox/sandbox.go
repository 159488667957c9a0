// Package sandbox is an in-memory stand-in for the task backend: the REST
// surface, the push connection and the file links a dashboard session uses.
// It backs the test suites and the "taskdesk sandbox" command.
package sandbox

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/transport"
	"github.com/frahmantamala/taskdesk/internal/transport/middleware"
)

// PushPath is where the push connection is served.
const PushPath = "/socket"

// Call is one REST request the sandbox received.
type Call struct {
	Method string
	Path   string
}

type fault struct {
	status  int
	message string
}

type Backend struct {
	Store  *Store
	Hub    *Hub
	Signer *auth.TokenSigner

	handler *Handler
	logger  *slog.Logger
	router  *chi.Mux

	mu     sync.Mutex
	calls  []Call
	faults map[string]fault
}

func New(secret string, logger *slog.Logger) *Backend {
	signer := auth.NewTokenSigner(secret, 24*time.Hour)
	store := NewStore()
	hub := NewHub(signer, logger)
	base := transport.NewBaseHandler(logger)

	b := &Backend{
		Store:   store,
		Hub:     hub,
		Signer:  signer,
		handler: NewHandler(store, hub, signer, base),
		logger:  logger,
		faults:  make(map[string]fault),
	}
	b.router = b.routes(base)
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes(base *transport.BaseHandler) *chi.Mux {
	h := b.handler
	router := chi.NewRouter()
	router.Use(middleware.RecoveryMiddleware(b.logger))
	router.Use(middleware.RequestID(b.logger))

	router.Handle(PushPath, b.Hub.Handler())
	router.Get("/uploads/*", h.ServeUpload)

	router.Route("/api", func(r chi.Router) {
		r.Use(b.record)
		r.Post("/auth/login", h.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(b.Signer, base))

			pr.Get("/tasks", h.ListTasks)
			pr.Patch("/tasks/{id}/status", h.UpdateTaskStatus)
			pr.Post("/tasks/{id}/complete", h.CompleteTask)
			pr.Get("/messages", h.ListMessages)
			pr.Post("/messages", h.SendMessage)
			pr.Patch("/messages/{id}/read", h.MarkMessageRead)

			pr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequireRole(user.RoleAdmin, base))

				ar.Post("/auth/register", h.Register)
				ar.Get("/admin/stats", h.Stats)
				ar.Get("/admin/employees", h.ListEmployees)
				ar.Post("/admin/employees", h.CreateEmployee)
				ar.Delete("/admin/employees/{id}", h.DeleteEmployee)
				ar.Post("/tasks", h.CreateTask)
				ar.Delete("/tasks/{id}", h.DeleteTask)
			})
		})
	})
	return router
}

// record keeps every API call and answers with an injected fault when one is armed.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path})
		f, failing := b.faults[key]
		delete(b.faults, key)
		b.mu.Unlock()

		if failing {
			b.handler.WriteError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request to method and path answer status with message.
// An empty message leaves the client to its fallback text.
func (b *Backend) FailNext(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[strings.ToUpper(method)+" "+path] = fault{status: status, message: message}
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo counts the recorded calls to path with method, or with any method when method is "".
func (b *Backend) CallsTo(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if (method == "" || c.Method == method) && c.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// TokenFor signs a session token for an existing account.
func (b *Backend) TokenFor(e user.Employee) string {
	token, err := b.Signer.Sign(user.Identity{ID: e.ID, Name: e.Name, Email: e.Email, Role: e.Role})
	if err != nil {
		b.logger.Error("failed to sign sandbox token", "error", err)
		return ""
	}
	return token
}
