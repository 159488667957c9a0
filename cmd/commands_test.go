package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/notify/sqlite"
	"github.com/frahmantamala/taskdesk/internal/sandbox"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func resetFlags(dir string) {
	configDir = dir
	token = ""
	assumeYes = false
	output = "text"
	taskStatusFilter = ""
	taskTitle, taskDescription, taskAssignee = "", "", ""
	taskFiles, completionFiles = nil, nil
	messageBox = "received"
	messageReceiver, messageSubject, messageContent = "", "", ""
	accountName, accountEmail, accountPassword, accountRole = "", "", "", string(user.RoleEmployee)
	notificationLimit = sqlite.DefaultListLimit
	whoamiPath = "/"
}

var _ = Describe("Commands", func() {
	var (
		dir      string
		backend  *sandbox.Backend
		server   *httptest.Server
		admin    user.Employee
		employee user.Employee
	)

	execute := func(stdin string, args ...string) result {
		resetFlags(dir)
		var stdout, stderr bytes.Buffer
		rootCmd.SetIn(strings.NewReader(stdin))
		rootCmd.SetOut(&stdout)
		rootCmd.SetErr(&stderr)
		rootCmd.SetArgs(append(args, "--config", dir))
		err := rootCmd.Execute()
		return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
	}

	as := func(e user.Employee, args ...string) result {
		return execute("", append(args, "--token", backend.TokenFor(e))...)
	}

	employeeTask := func() task.Task {
		tasks := backend.Store.TasksFor(identityOf(employee))
		Expect(tasks).To(HaveLen(1))
		return tasks[0]
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		backend = sandbox.New("test-secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
		server = httptest.NewServer(backend)
		DeferCleanup(server.Close)

		seeded, err := seedSandbox(backend, "password", io.Discard)
		Expect(err).NotTo(HaveOccurred())
		Expect(seeded).To(HaveLen(2))
		admin, employee = seeded[0], seeded[1]

		setenv("TASKDESK_API_BASE_URL", server.URL)
		setenv("TASKDESK_LOGGING_LEVEL", "error")
		setenv("TASKDESK_NOTIFICATIONS_DB_PATH", filepath.Join(dir, "notifications.db"))
	})

	Describe("login", func() {
		It("prints a token for the account", func() {
			// When
			res := execute("", "login", "--email", employee.Email, "--password", "password")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
			Expect(lines[0]).To(Equal("Logged in as Fadhil (Employee)"))
			identity, err := auth.ParseIdentity(lines[len(lines)-1])
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.ID).To(Equal(employee.ID))
		})

		It("fails with the backend's reason for bad credentials", func() {
			// When
			res := execute("", "login", "--email", employee.Email, "--password", "wrong")

			// Then
			Expect(res.err).To(HaveOccurred())
			Expect(errors.IsType(res.err, errors.ErrorTypeRejected)).To(BeTrue())
		})
	})

	Describe("whoami", func() {
		It("sends an employee asking for the admin view to their own", func() {
			// When
			res := as(employee, "whoami", "--path", "/admin/employees")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).To(ContainSubstring("Fadhil <fadhil@mail.com> Employee"))
			Expect(res.stdout).To(ContainSubstring("/admin/employees redirects to /employee"))
		})

		It("refuses a missing token", func() {
			// When
			res := execute("", "whoami")

			// Then
			Expect(res.err).To(HaveOccurred())
		})
	})

	Describe("tasks", func() {
		It("lists the employee's tasks", func() {
			// When
			res := as(employee, "tasks", "list")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).To(ContainSubstring("Prepare weekly report"))
			Expect(res.stdout).To(ContainSubstring("pending"))
		})

		It("filters by status", func() {
			// When
			res := as(employee, "tasks", "list", "--status", "completed")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).NotTo(ContainSubstring("Prepare weekly report"))
		})

		It("rejects an unknown status filter", func() {
			// When
			res := as(employee, "tasks", "list", "--status", "done")

			// Then
			Expect(res.err).To(MatchError(ContainSubstring("unknown status")))
		})

		It("starts and then completes a task", func() {
			// Given
			id := employeeTask().ID

			// When
			started := as(employee, "tasks", "start", id)
			completed := as(employee, "tasks", "complete", id)

			// Then
			Expect(started.err).NotTo(HaveOccurred())
			Expect(started.stdout).To(ContainSubstring("Task started"))
			Expect(completed.err).NotTo(HaveOccurred())
			Expect(employeeTask().Status).To(Equal(task.StatusCompleted))
		})

		It("lets an admin create a task", func() {
			// When
			res := as(admin, "tasks", "create",
				"--title", "Audit invoices",
				"--description", "Check March invoices",
				"--assignee", employee.ID)

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(backend.Store.TasksFor(identityOf(employee))).To(HaveLen(2))
		})

		It("refuses task creation to an employee without calling the backend", func() {
			// Given
			backend.ResetCalls()

			// When
			res := as(employee, "tasks", "create",
				"--title", "Self assigned",
				"--description", "Nope",
				"--assignee", employee.ID)

			// Then
			Expect(res.err).To(MatchError(errors.ErrActionForbidden))
			Expect(backend.CallsTo("POST", "/api/tasks")).To(Equal(0))
			Expect(res.stderr).To(ContainSubstring("error: Your role cannot perform this action"))
		})
	})

	Describe("employees delete", func() {
		It("keeps the employee when the prompt is declined", func() {
			// When
			res := execute("n\n", "employees", "delete", employee.ID, "--token", backend.TokenFor(admin))

			// Then
			Expect(res.err).To(MatchError(errors.ErrNotConfirmed))
			Expect(res.stderr).To(ContainSubstring("Delete employee Fadhil with all their tasks and messages? [y/N]"))
			_, ok := backend.Store.User(employee.ID)
			Expect(ok).To(BeTrue())
		})

		It("deletes the employee with --yes", func() {
			// When
			res := as(admin, "employees", "delete", employee.ID, "--yes")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			_, ok := backend.Store.User(employee.ID)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("employees list and stats", func() {
		It("lists the roster for an admin", func() {
			// When
			res := as(admin, "employees", "list")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).To(ContainSubstring("fadhil@mail.com"))
		})

		It("forbids the roster to an employee", func() {
			// When
			res := as(employee, "employees", "list")

			// Then
			Expect(res.err).To(MatchError(errors.ErrActionForbidden))
		})

		It("prints stats as JSON", func() {
			// When
			res := as(admin, "stats", "-o", "json")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).To(ContainSubstring(`"totalTasks": 1`))
			Expect(res.stdout).To(ContainSubstring(`"completionRate": 0`))
		})
	})

	Describe("messages", func() {
		It("replies to the welcome message", func() {
			// Given
			inbox := backend.Store.MessagesFor(identityOf(employee))
			Expect(inbox).To(HaveLen(1))

			// When
			res := as(employee, "messages", "reply", inbox[0].ID, "--content", "Thanks!")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			sent := backend.Store.MessagesFor(identityOf(admin))
			Expect(sent).To(ContainElement(And(
				HaveField("Subject", "Re: Welcome"),
				HaveField("Receiver.ID", admin.ID),
			)))
		})

		It("marks a received message as read", func() {
			// Given
			id := backend.Store.MessagesFor(identityOf(employee))[0].ID

			// When
			res := as(employee, "messages", "read", id)

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			m, ok := backend.Store.Message(id)
			Expect(ok).To(BeTrue())
			Expect(m.Read).To(BeTrue())
		})

		It("lists unread messages", func() {
			// When
			res := as(employee, "messages", "list", "--box", "unread")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).To(ContainSubstring("Welcome"))
		})
	})

	Describe("notifications list", func() {
		It("shows the identity's logged notifications", func() {
			// Given
			db, err := sqlite.Open(filepath.Join(dir, "notifications.db"))
			Expect(err).NotTo(HaveOccurred())
			Expect(sqlite.Migrate(context.Background(), db)).To(Succeed())
			repo := sqlite.NewRepository(db)
			Expect(repo.Save(context.Background(), notification.Notification{
				ID:         "n-1",
				IdentityID: employee.ID,
				Kind:       notification.KindNewTask,
				Title:      "New task assigned",
				Body:       "Prepare weekly report",
				CreatedAt:  time.Now(),
			})).To(Succeed())
			Expect(repo.Save(context.Background(), notification.Notification{
				ID:         "n-2",
				IdentityID: admin.ID,
				Kind:       notification.KindNewMessage,
				Title:      "Not for Fadhil",
				CreatedAt:  time.Now(),
			})).To(Succeed())
			closeDB(db)

			// When
			res := as(employee, "notifications", "list")

			// Then
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.stdout).To(ContainSubstring("Prepare weekly report"))
			Expect(res.stdout).NotTo(ContainSubstring("Not for Fadhil"))
		})
	})

	Describe("migrate", func() {
		It("migrates and rolls back the notification log", func() {
			// When
			up := execute("", "migrate")
			down := execute("", "migrate", "--rollback")

			// Then
			Expect(up.err).NotTo(HaveOccurred())
			Expect(up.stdout).To(ContainSubstring("up to date"))
			Expect(down.err).NotTo(HaveOccurred())
			Expect(down.stdout).To(ContainSubstring("Rolled back"))
		})
	})

	Describe("seedSandbox", func() {
		It("skips accounts that already exist", func() {
			// When
			var out bytes.Buffer
			seeded, err := seedSandbox(backend, "password", &out)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(seeded).To(BeEmpty())
			Expect(out.String()).To(ContainSubstring("padil@mail.com user already exists"))
			Expect(backend.Store.TasksFor(identityOf(admin))).To(HaveLen(1))
		})
	})
})
