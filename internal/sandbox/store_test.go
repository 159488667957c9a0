package sandbox_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/sandbox"
)

func identityOf(e user.Employee) user.Identity {
	return user.Identity{ID: e.ID, Name: e.Name, Email: e.Email, Role: e.Role}
}

var _ = Describe("Store", func() {
	var (
		store *sandbox.Store
		boss  user.Employee
		alice user.Employee
		bob   user.Employee
	)

	BeforeEach(func() {
		var err error
		store = sandbox.NewStore()
		boss, err = store.AddUser("Boss", "boss@example.com", "secret1", user.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		alice, err = store.AddUser("Alice", "alice@example.com", "secret1", user.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
		bob, err = store.AddUser("Bob", "bob@example.com", "secret1", user.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should refuse a duplicate email", func() {
		_, err := store.AddUser("Alice 2", "alice@example.com", "secret1", user.RoleEmployee)

		Expect(err).To(MatchError("User already exists"))
	})

	It("should authenticate with the stored password only", func() {
		e, err := store.Authenticate("alice@example.com", "secret1")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.ID).To(Equal(alice.ID))

		_, err = store.Authenticate("alice@example.com", "wrong")
		Expect(err).To(MatchError("Invalid credentials"))
	})

	It("should cascade an employee deletion to tasks and messages", func() {
		// Given
		_, err := store.CreateTask(identityOf(boss), "For Alice", "x", alice.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		kept, err := store.CreateTask(identityOf(boss), "For Bob", "x", bob.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.SendMessage(identityOf(boss), alice.ID, "Hi", "Alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = store.SendMessage(identityOf(alice), bob.ID, "Hey", "Bob")
		Expect(err).NotTo(HaveOccurred())
		_, err = store.SendMessage(identityOf(boss), bob.ID, "Hello", "Bob")
		Expect(err).NotTo(HaveOccurred())

		// When
		Expect(store.DeleteUser(alice.ID)).To(Succeed())

		// Then
		_, ok := store.User(alice.ID)
		Expect(ok).To(BeFalse())
		Expect(store.TasksFor(identityOf(boss))).To(ConsistOf(kept))
		Expect(store.MessagesFor(identityOf(bob))).To(HaveLen(1))
		Expect(store.Employees()).To(HaveLen(1))
	})

	It("should count stats like the backend", func() {
		// Given
		t1, err := store.CreateTask(identityOf(boss), "One", "x", alice.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.CreateTask(identityOf(boss), "Two", "x", alice.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		t3, err := store.CreateTask(identityOf(boss), "Three", "x", bob.ID, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.CompleteTask(identityOf(alice), t1.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.UpdateTaskStatus(identityOf(bob), t3.ID, task.StatusInProgress)
		Expect(err).NotTo(HaveOccurred())

		// When
		s := store.Stats()

		// Then
		Expect(s.TotalEmployees).To(Equal(2))
		Expect(s.TotalTasks).To(Equal(3))
		Expect(s.CompletedTasks).To(Equal(1))
		Expect(s.PendingTasks).To(Equal(1))
	})

	It("should let only the assignee move a task", func() {
		t1, err := store.CreateTask(identityOf(boss), "One", "x", alice.ID, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.UpdateTaskStatus(identityOf(bob), t1.ID, task.StatusInProgress)
		Expect(err).To(HaveOccurred())

		done, err := store.CompleteTask(identityOf(alice), t1.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(done.Status).To(Equal(task.StatusCompleted))
		Expect(done.CompletedAt).NotTo(BeNil())
		Expect(done.CheckInvariants()).To(Succeed())
	})

	It("should scope task lists to the assignee", func() {
		_, err := store.CreateTask(identityOf(boss), "One", "x", alice.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.CreateTask(identityOf(boss), "Two", "x", bob.ID, nil)
		Expect(err).NotTo(HaveOccurred())

		for _, t := range store.TasksFor(identityOf(alice)) {
			Expect(t.AssignedTo.ID).To(Equal(alice.ID))
		}
		Expect(store.TasksFor(identityOf(alice))).To(HaveLen(1))
	})

	It("should let only the receiver mark a message read", func() {
		m, err := store.SendMessage(identityOf(boss), alice.ID, "Hi", "there")
		Expect(err).NotTo(HaveOccurred())

		_, err = store.MarkRead(identityOf(boss), m.ID)
		Expect(err).To(HaveOccurred())

		read, err := store.MarkRead(identityOf(alice), m.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(read.Read).To(BeTrue())
	})
})
