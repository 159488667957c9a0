package sandbox

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/stats"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

// apiError is a failure the handlers turn into a {"message"} body with status.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

var (
	errInvalidCredentials = &apiError{http.StatusBadRequest, "Invalid credentials"}
	errUserExists         = &apiError{http.StatusBadRequest, "User already exists"}
	errUserNotFound       = &apiError{http.StatusNotFound, "User not found"}
	errTaskNotFound       = &apiError{http.StatusNotFound, "Task not found"}
	errMessageNotFound    = &apiError{http.StatusNotFound, "Message not found"}
	errNotAssignee        = &apiError{http.StatusForbidden, "Not authorized to update this task"}
	errNotReceiver        = &apiError{http.StatusForbidden, "Not authorized to update this message"}
	errInvalidStatus      = &apiError{http.StatusBadRequest, "Invalid status"}
)

type account struct {
	employee     user.Employee
	passwordHash []byte
}

// Upload is a stored attachment.
type Upload struct {
	Filename string
	Content  []byte
}

// Store is the sandbox backend's in-memory state. Tasks and messages are kept newest first.
type Store struct {
	mu         sync.RWMutex
	accounts   map[string]*account
	order      []string
	tasks      []task.Task
	messages   []message.Message
	uploads    map[string]Upload
	bcryptCost int
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:   make(map[string]*account),
		uploads:    make(map[string]Upload),
		bcryptCost: bcrypt.MinCost,
		now:        time.Now,
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// AddUser creates an account. Emails are unique, case-insensitively.
func (s *Store) AddUser(name, email, password string, role user.Role) (user.Employee, error) {
	if !role.Valid() {
		return user.Employee{}, &apiError{http.StatusBadRequest, "Invalid role"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return user.Employee{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.employee.Email, email) {
			return user.Employee{}, errUserExists
		}
	}
	e := user.Employee{
		ID:        newID(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	s.accounts[e.ID] = &account{employee: e, passwordHash: hash}
	s.order = append(s.order, e.ID)
	return e, nil
}

func (s *Store) Authenticate(email, password string) (user.Employee, error) {
	s.mu.RLock()
	var found *account
	for _, a := range s.accounts {
		if strings.EqualFold(a.employee.Email, email) {
			found = a
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return user.Employee{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(found.passwordHash, []byte(password)); err != nil {
		return user.Employee{}, errInvalidCredentials
	}
	return found.employee, nil
}

func (s *Store) User(id string) (user.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return user.Employee{}, false
	}
	return a.employee, true
}

// Employees lists accounts holding the Employee role in creation order.
func (s *Store) Employees() []user.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []user.Employee{}
	for _, id := range s.order {
		if e := s.accounts[id].employee; e.Role == user.RoleEmployee {
			out = append(out, e)
		}
	}
	return out
}

// DeleteUser removes the account together with its tasks and messages.
func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return errUserNotFound
	}
	delete(s.accounts, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	tasks := s.tasks[:0]
	for _, t := range s.tasks {
		if t.AssignedTo.ID != id {
			tasks = append(tasks, t)
		}
	}
	s.tasks = tasks

	msgs := s.messages[:0]
	for _, m := range s.messages {
		if m.Sender.ID != id && m.Receiver.ID != id {
			msgs = append(msgs, m)
		}
	}
	s.messages = msgs
	return nil
}

func (s *Store) Stats() stats.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := stats.Stats{TotalTasks: len(s.tasks)}
	for _, a := range s.accounts {
		if a.employee.Role == user.RoleEmployee {
			st.TotalEmployees++
		}
	}
	for _, t := range s.tasks {
		switch t.Status {
		case task.StatusCompleted:
			st.CompletedTasks++
		case task.StatusPending:
			st.PendingTasks++
		}
	}
	return st
}

// TasksFor returns every task to admins and only assigned tasks to employees.
func (s *Store) TasksFor(identity user.Identity) []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []task.Task{}
	for _, t := range s.tasks {
		if identity.IsAdmin() || t.IsAssignedTo(identity.ID) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) Task(id string) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.taskIndex(id)
	if i < 0 {
		return task.Task{}, false
	}
	return s.tasks[i], true
}

func (s *Store) taskIndex(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// StoreUpload keeps an attachment and returns its reference.
func (s *Store) StoreUpload(filename string, content []byte) task.FileRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := "uploads/" + newID() + "-" + filename
	s.uploads[path] = Upload{Filename: filename, Content: content}
	return task.FileRef{Filename: filename, Path: path, UploadDate: s.now().UTC()}
}

func (s *Store) Upload(path string) (Upload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[path]
	return u, ok
}

func (s *Store) CreateTask(by user.Identity, title, description, assignedTo string, files []task.FileRef) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignee, ok := s.accounts[assignedTo]
	if !ok {
		return task.Task{}, errUserNotFound
	}
	if files == nil {
		files = []task.FileRef{}
	}
	t := task.Task{
		ID:              newID(),
		Title:           title,
		Description:     description,
		Status:          task.StatusPending,
		AssignedTo:      assignee.employee.Ref(),
		AssignedBy:      by.Ref(),
		AssignedDate:    s.now().UTC(),
		Files:           files,
		CompletionFiles: []task.FileRef{},
	}
	s.tasks = append([]task.Task{t}, s.tasks...)
	return t, nil
}

// PutTask inserts or replaces a task as given.
func (s *Store) PutTask(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.taskIndex(t.ID); i >= 0 {
		s.tasks[i] = t
		return
	}
	s.tasks = append([]task.Task{t}, s.tasks...)
}

func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return errTaskNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

// UpdateTaskStatus lets the assignee set any known status.
func (s *Store) UpdateTaskStatus(by user.Identity, id string, status task.Status) (task.Task, error) {
	if status.Rank() < 0 {
		return task.Task{}, errInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return task.Task{}, errTaskNotFound
	}
	t := s.tasks[i]
	if !t.IsAssignedTo(by.ID) {
		return task.Task{}, errNotAssignee
	}
	t.Status = status
	if status == task.StatusCompleted {
		now := s.now().UTC()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	s.tasks[i] = t
	return t, nil
}

func (s *Store) CompleteTask(by user.Identity, id string, files []task.FileRef) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return task.Task{}, errTaskNotFound
	}
	t := s.tasks[i]
	if !t.IsAssignedTo(by.ID) {
		return task.Task{}, errNotAssignee
	}
	now := s.now().UTC()
	t.Status = task.StatusCompleted
	t.CompletedAt = &now
	t.CompletionFiles = append(append([]task.FileRef{}, t.CompletionFiles...), files...)
	s.tasks[i] = t
	return t, nil
}

// MessagesFor returns the messages identity sent or received.
func (s *Store) MessagesFor(identity user.Identity) []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []message.Message{}
	for _, m := range s.messages {
		if m.IsFor(identity.ID) || m.IsFrom(identity.ID) {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) Message(id string) (message.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return message.Message{}, false
}

func (s *Store) SendMessage(from user.Identity, receiverID, subject, content string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receiver, ok := s.accounts[receiverID]
	if !ok {
		return message.Message{}, errUserNotFound
	}
	m := message.Message{
		ID:       newID(),
		Sender:   from.Ref(),
		Receiver: receiver.employee.Ref(),
		Subject:  subject,
		Content:  content,
		SentDate: s.now().UTC(),
	}
	s.messages = append([]message.Message{m}, s.messages...)
	return m, nil
}

func (s *Store) MarkRead(by user.Identity, id string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID != id {
			continue
		}
		if !m.IsFor(by.ID) {
			return message.Message{}, errNotReceiver
		}
		m.Read = true
		s.messages[i] = m
		return m, nil
	}
	return message.Message{}, errMessageNotFound
}
