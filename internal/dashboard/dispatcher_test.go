package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/gateway"
	"github.com/frahmantamala/taskdesk/internal/sandbox"
)

var _ = Describe("Dispatcher", func() {
	var (
		ctx      context.Context
		logger   *slog.Logger
		backend  *sandbox.Backend
		server   *httptest.Server
		boss     user.Employee
		alice    user.Employee
		bob      user.Employee
		reported *notices
		confirm  *prompts
		sessions []*dashboard.Session
	)

	start := func(e user.Employee) (*dashboard.Session, *dashboard.Dispatcher) {
		s := dashboard.NewSession(dashboard.Options{
			Client: gateway.NewClient(gateway.Config{
				BaseURL: server.URL,
				Token:   backend.TokenFor(e),
				Timeout: 5 * time.Second,
			}, logger),
			Confirmer: confirm,
			Reporter:  reported,
			Logger:    logger,
		})
		sessions = append(sessions, s)
		Expect(s.Start(ctx)).To(Succeed())
		d, err := s.Dispatcher()
		Expect(err).NotTo(HaveOccurred())
		backend.ResetCalls()
		return s, d
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		backend = sandbox.New("dispatcher-test-secret", logger)
		server = httptest.NewServer(backend)
		reported = &notices{}
		confirm = &prompts{}
		sessions = nil

		boss, err = backend.Store.AddUser("Boss", "boss@example.com", "secret1", user.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		alice, err = backend.Store.AddUser("Alice", "alice@example.com", "secret1", user.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
		bob, err = backend.Store.AddUser("Bob", "bob@example.com", "secret1", user.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		for _, s := range sessions {
			s.Close()
		}
		server.Close()
	})

	Describe("task status", func() {
		var t1 task.Task

		BeforeEach(func() {
			var err error
			t1, err = backend.Store.CreateTask(identityOf(boss), "Report", "Q3", alice.ID, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should advance a pending task and show it after the refresh", func() {
			// Given
			s, d := start(alice)
			Expect(s.Cache().Tasks()[0].Status).To(Equal(task.StatusPending))

			// When
			Expect(d.StartTask(ctx, t1.ID)).To(Succeed())

			// Then
			Expect(backend.CallsTo(http.MethodPatch, "/api/tasks/"+t1.ID+"/status")).To(Equal(1))
			Expect(backend.CallsTo(http.MethodGet, "/api/tasks")).To(Equal(1))
			Expect(s.Cache().Tasks()).To(HaveLen(1))
			Expect(s.Cache().Tasks()[0].Status).To(Equal(task.StatusInProgress))
		})

		It("should not start a task twice", func() {
			_, d := start(alice)
			Expect(d.StartTask(ctx, t1.ID)).To(Succeed())
			backend.ResetCalls()

			err := d.StartTask(ctx, t1.ID)

			Expect(err).To(MatchError(errors.ErrInvalidTaskStatus))
			Expect(backend.Calls()).To(BeEmpty())
		})

		It("should refuse completion through a status update", func() {
			_, d := start(alice)

			err := d.UpdateTaskStatus(ctx, t1.ID, gateway.UpdateTaskStatusDTO{Status: task.StatusCompleted})

			Expect(err).To(MatchError(errors.ErrInvalidTaskStatus))
			Expect(backend.Calls()).To(BeEmpty())
		})

		It("should complete a task without files", func() {
			// Given
			s, d := start(alice)

			// When
			Expect(d.CompleteTask(ctx, t1.ID, gateway.CompleteTaskDTO{})).To(Succeed())

			// Then
			got, ok := s.Cache().Task(t1.ID)
			Expect(ok).To(BeTrue())
			Expect(got.Status).To(Equal(task.StatusCompleted))
			Expect(got.CompletedAt).NotTo(BeNil())
			Expect(got.CompletionFiles).To(BeEmpty())
		})

		It("should not complete a completed task", func() {
			_, d := start(alice)
			Expect(d.CompleteTask(ctx, t1.ID, gateway.CompleteTaskDTO{})).To(Succeed())
			backend.ResetCalls()

			err := d.CompleteTask(ctx, t1.ID, gateway.CompleteTaskDTO{})

			Expect(err).To(MatchError(errors.ErrInvalidTaskStatus))
			Expect(backend.Calls()).To(BeEmpty())
		})

		It("should refuse a task that is not in the employee's view", func() {
			other, err := backend.Store.CreateTask(identityOf(boss), "Other", "x", bob.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			_, d := start(alice)

			err = d.StartTask(ctx, other.ID)

			Expect(err).To(MatchError(errors.ErrTaskNotFound))
			Expect(backend.Calls()).To(BeEmpty())
			Expect(reported.messages()).To(ContainElement("Task not found"))
		})

		It("should refuse status changes to an admin", func() {
			_, d := start(boss)

			err := d.StartTask(ctx, t1.ID)

			Expect(errors.IsType(err, errors.ErrorTypeForbidden)).To(BeTrue())
			Expect(backend.Calls()).To(BeEmpty())
		})
	})

	Describe("destructive actions", func() {
		It("should not delete an employee without confirmation", func() {
			// Given
			_, err := backend.Store.CreateTask(identityOf(boss), "Report", "Q3", alice.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			s, d := start(boss)
			before := s.Cache().Employees()
			confirm.answer = false

			// When
			err = d.DeleteEmployee(ctx, alice.ID)

			// Then
			Expect(err).To(MatchError(errors.ErrNotConfirmed))
			Expect(backend.CallsTo(http.MethodDelete, "/api/admin/employees/"+alice.ID)).To(BeZero())
			Expect(s.Cache().Employees()).To(Equal(before))
			Expect(s.Cache().Tasks()).To(HaveLen(1))
			Expect(confirm.asked).To(ConsistOf(ContainSubstring("Alice")))
		})

		It("should delete a confirmed employee and drop their tasks", func() {
			// Given
			_, err := backend.Store.CreateTask(identityOf(boss), "Report", "Q3", alice.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			s, d := start(boss)
			confirm.answer = true

			// When
			Expect(d.DeleteEmployee(ctx, alice.ID)).To(Succeed())

			// Then
			Expect(s.Cache().Employees()).To(HaveLen(1))
			Expect(s.Cache().Tasks()).To(BeEmpty())
			st, _ := s.Cache().Stats()
			Expect(st.TotalEmployees).To(Equal(1))
		})

		It("should ask before deleting a task", func() {
			t1, err := backend.Store.CreateTask(identityOf(boss), "Report", "Q3", alice.ID, nil)
			Expect(err).NotTo(HaveOccurred())
			s, d := start(boss)

			Expect(d.DeleteTask(ctx, t1.ID)).To(MatchError(errors.ErrNotConfirmed))
			Expect(s.Cache().Tasks()).To(HaveLen(1))

			confirm.answer = true
			Expect(d.DeleteTask(ctx, t1.ID)).To(Succeed())
			Expect(s.Cache().Tasks()).To(BeEmpty())
			Expect(confirm.asked).To(HaveLen(2))
			Expect(confirm.asked[0]).To(ContainSubstring("Report"))
		})
	})

	Describe("provisioning", func() {
		It("should surface the backend's reason verbatim", func() {
			// Given
			_, d := start(boss)

			// When
			err := d.CreateEmployee(ctx, gateway.CreateEmployeeDTO{Name: "Alice", Email: "alice@example.com", Password: "secret1"})

			// Then
			Expect(errors.IsType(err, errors.ErrorTypeRejected)).To(BeTrue())
			Expect(reported.messages()).To(Equal([]string{"User already exists"}))
			Expect(backend.CallsTo(http.MethodGet, "/api/tasks")).To(BeZero())
		})

		It("should validate before sending", func() {
			_, d := start(boss)

			err := d.CreateEmployee(ctx, gateway.CreateEmployeeDTO{Name: "Carol"})

			Expect(errors.IsType(err, errors.ErrorTypeValidation)).To(BeTrue())
			Expect(backend.Calls()).To(BeEmpty())
		})

		It("should add the new employee to the roster", func() {
			s, d := start(boss)

			Expect(d.CreateEmployee(ctx, gateway.CreateEmployeeDTO{Name: "Carol", Email: "carol@example.com", Password: "secret1"})).To(Succeed())

			Expect(s.Cache().Employees()).To(HaveLen(3))
		})

		It("should register an admin with the chosen role", func() {
			_, d := start(boss)

			Expect(d.RegisterUser(ctx, gateway.RegisterUserDTO{Name: "Dan", Email: "dan@example.com", Password: "secret1", Role: user.RoleAdmin})).To(Succeed())

			e, err := backend.Store.Authenticate("dan@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Role).To(Equal(user.RoleAdmin))
		})

		It("should not let employees create tasks", func() {
			_, d := start(alice)

			err := d.CreateTask(ctx, gateway.CreateTaskDTO{Title: "Mine", Description: "x", AssignedTo: alice.ID})

			Expect(err).To(MatchError(errors.ErrActionForbidden))
			Expect(backend.CallsTo(http.MethodPost, "/api/tasks")).To(BeZero())
		})

		It("should create a task with attachments", func() {
			s, d := start(boss)

			Expect(d.CreateTask(ctx, gateway.CreateTaskDTO{
				Title:       "Report",
				Description: "Q3",
				AssignedTo:  alice.ID,
				Files:       []gateway.Attachment{{Filename: "brief.txt", Content: strings.NewReader("brief")}},
			})).To(Succeed())

			Expect(s.Cache().Tasks()).To(HaveLen(1))
			Expect(s.Cache().Tasks()[0].Files).To(HaveLen(1))
		})
	})

	Describe("messages", func() {
		var hello message.Message

		BeforeEach(func() {
			var err error
			hello, err = backend.Store.SendMessage(identityOf(boss), alice.ID, "Hello", "Welcome aboard")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reply to the original sender with a Re: subject", func() {
			// Given
			s, d := start(alice)

			// When
			Expect(d.Reply(ctx, hello.ID, "Thanks")).To(Succeed())

			// Then
			var reply message.Message
			for _, m := range s.Cache().Messages() {
				if m.IsFrom(alice.ID) {
					reply = m
				}
			}
			Expect(reply.Receiver.ID).To(Equal(boss.ID))
			Expect(reply.Subject).To(Equal("Re: Hello"))
			Expect(reply.Content).To(Equal("Thanks"))
		})

		It("should mark a message read once", func() {
			// Given
			s, d := start(alice)

			// When
			Expect(d.MarkRead(ctx, hello.ID)).To(Succeed())
			Expect(d.MarkRead(ctx, hello.ID)).To(Succeed())

			// Then
			Expect(backend.CallsTo(http.MethodPatch, "/api/messages/"+hello.ID+"/read")).To(Equal(1))
			got, _ := s.Cache().Message(hello.ID)
			Expect(got.Read).To(BeTrue())
		})

		It("should let only the receiver mark a message read", func() {
			_, d := start(boss)

			err := d.MarkRead(ctx, hello.ID)

			Expect(err).To(MatchError(errors.ErrNotReceiver))
			Expect(backend.Calls()).To(BeEmpty())
		})

		It("should keep the mutation successful when the refresh fails", func() {
			// Given
			s, d := start(alice)
			backend.FailNext(http.MethodGet, "/api/messages", http.StatusInternalServerError, "")

			// When
			err := d.SendMessage(ctx, gateway.SendMessageDTO{Receiver: boss.ID, Subject: "Status", Content: "All good"})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(reported.messages()).To(ConsistOf("Saved, but the dashboard could not be refreshed"))
			Expect(s.Cache().Messages()).To(HaveLen(1))
		})

		It("should fall back to a generic text when the backend gives none", func() {
			_, d := start(alice)
			backend.FailNext(http.MethodPost, "/api/messages", http.StatusInternalServerError, "")

			err := d.SendMessage(ctx, gateway.SendMessageDTO{Receiver: boss.ID, Subject: "Status", Content: "All good"})

			Expect(err).To(HaveOccurred())
			Expect(reported.messages()).To(ConsistOf("Error sending message"))
		})
	})
})
