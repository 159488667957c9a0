package sandbox

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/core/events"
	"github.com/frahmantamala/taskdesk/internal/transport"
)

const maxUploadMemory = 32 << 20

type Handler struct {
	*transport.BaseHandler
	store  *Store
	hub    *Hub
	signer *auth.TokenSigner
}

func NewHandler(store *Store, hub *Hub, signer *auth.TokenSigner, base *transport.BaseHandler) *Handler {
	return &Handler{
		BaseHandler: base,
		store:       store,
		hub:         hub,
		signer:      signer,
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		h.WriteError(w, apiErr.status, apiErr.message)
		return
	}
	h.WriteError(w, http.StatusInternalServerError, "Server error")
}

func identity(r *http.Request) user.Identity {
	id, _ := internal.IdentityFromContext(r.Context())
	return id
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  user.Employee `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	token, err := h.signer.Sign(user.Identity{ID: e.ID, Name: e.Name, Email: e.Email, Role: e.Role})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: e})
}

type registerRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.createUser(w, r, "")
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	h.createUser(w, r, user.RoleEmployee)
}

// createUser provisions an account; a non-empty forced role overrides the requested one.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request, forced user.Role) {
	var req registerRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if forced != "" {
		req.Role = forced
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.WriteError(w, http.StatusBadRequest, "Please provide name, email and password")
		return
	}
	e, err := h.store.AddUser(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.store.Employees())
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteUser(chi.URLParam(r, "id")); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Employee deleted"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.store.Stats())
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.store.TasksFor(identity(r)))
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	files, err := h.uploads(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	title, description, assignedTo := r.FormValue("title"), r.FormValue("description"), r.FormValue("assignedTo")
	if title == "" || description == "" || assignedTo == "" {
		h.WriteError(w, http.StatusBadRequest, "Please provide title, description and assignee")
		return
	}
	t, err := h.store.CreateTask(identity(r), title, description, assignedTo, files)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.hub.Push(t.AssignedTo.ID, events.EventTypeNewTask, t)
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTask(chi.URLParam(r, "id")); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

type statusRequest struct {
	Status task.Status `json:"status"`
}

func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := h.store.UpdateTaskStatus(identity(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.hub.Push(t.AssignedBy.ID, events.EventTypeTaskUpdated, t)
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	files, err := h.uploads(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	t, err := h.store.CompleteTask(identity(r), chi.URLParam(r, "id"), files)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.hub.Push(t.AssignedBy.ID, events.EventTypeTaskCompleted, t)
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.store.MessagesFor(identity(r)))
}

type sendMessageRequest struct {
	Receiver string `json:"receiver"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Receiver == "" || req.Subject == "" || req.Content == "" {
		h.WriteError(w, http.StatusBadRequest, "Please provide receiver, subject and content")
		return
	}
	m, err := h.store.SendMessage(identity(r), req.Receiver, req.Subject, req.Content)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.hub.Push(m.Receiver.ID, events.EventTypeNewMessage, m)
	h.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.MarkRead(identity(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

// ServeUpload returns a stored attachment by its relative path.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	u, ok := h.store.Upload(path)
	if !ok {
		h.WriteError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+u.Filename+`"`)
	_, _ = w.Write(u.Content)
}

// uploads stores every "files" part of a multipart request. A body without parts yields none.
func (h *Handler) uploads(r *http.Request) ([]task.FileRef, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return []task.FileRef{}, nil
		}
		return nil, err
	}
	refs := []task.FileRef{}
	for _, fh := range r.MultipartForm.File["files"] {
		content, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		refs = append(refs, h.store.StoreUpload(fh.Filename, content))
	}
	return refs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
