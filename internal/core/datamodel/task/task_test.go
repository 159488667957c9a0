package task_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
)

var _ = Describe("Task", func() {
	now := time.Now()

	DescribeTable("CheckInvariants",
		func(status task.Status, completedAt *time.Time, want error) {
			// Given
			t := task.Task{ID: "t1", Status: status, CompletedAt: completedAt}

			// When
			err := t.CheckInvariants()

			// Then
			if want == nil {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(want))
			}
		},
		Entry("pending without completedAt", task.StatusPending, nil, nil),
		Entry("in progress without completedAt", task.StatusInProgress, nil, nil),
		Entry("completed with completedAt", task.StatusCompleted, &now, nil),
		Entry("completedAt on a pending task", task.StatusPending, &now, task.ErrCompletedAtWithoutCompletion),
		Entry("completedAt on an in-progress task", task.StatusInProgress, &now, task.ErrCompletedAtWithoutCompletion),
		Entry("completed without completedAt", task.StatusCompleted, nil, task.ErrCompletionWithoutCompletedAt),
		Entry("unknown status", task.Status("done"), nil, task.ErrUnknownStatus),
	)

	It("should rank statuses along the transition path", func() {
		Expect(task.StatusPending.Rank()).To(BeNumerically("<", task.StatusInProgress.Rank()))
		Expect(task.StatusInProgress.Rank()).To(BeNumerically("<", task.StatusCompleted.Rank()))
		Expect(task.Status("archived").Rank()).To(Equal(-1))
	})

	DescribeTable("transitions",
		func(status task.Status, canStart, canComplete bool) {
			t := task.Task{Status: status}

			Expect(t.CanStart()).To(Equal(canStart))
			Expect(t.CanComplete()).To(Equal(canComplete))
		},
		Entry("pending", task.StatusPending, true, true),
		Entry("in progress", task.StatusInProgress, false, true),
		Entry("completed", task.StatusCompleted, false, false),
	)
})
