package sqlite_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
	"github.com/frahmantamala/taskdesk/internal/notify/sqlite"
)

func note(id, identityID string, at time.Time) notification.Notification {
	return notification.Notification{
		ID:         id,
		IdentityID: identityID,
		Kind:       notification.KindNewMessage,
		Title:      "New message from Boss",
		Body:       "subject " + id,
		EntityID:   "m-" + id,
		CreatedAt:  at,
	}
}

var _ = Describe("Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *sqlite.Repository
		base time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		db, err = sqlite.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlite.Migrate(ctx, db)).To(Succeed())

		repo = sqlite.NewRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("should list an identity's notifications newest first", func() {
		// Given
		Expect(repo.Save(ctx, note("n1", "u1", base))).To(Succeed())
		Expect(repo.Save(ctx, note("n2", "u1", base.Add(time.Minute)))).To(Succeed())
		Expect(repo.Notify(ctx, note("n3", "u2", base.Add(2*time.Minute)))).To(Succeed())

		// When
		got, err := repo.ListByIdentity(ctx, "u1", 0)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal("n2"))
		Expect(got[1].ID).To(Equal("n1"))
		Expect(got[0].Body).To(Equal("subject n2"))
		Expect(got[0].CreatedAt.Equal(base.Add(time.Minute))).To(BeTrue())
	})

	It("should honour the limit", func() {
		for i, id := range []string{"a", "b", "c"} {
			Expect(repo.Save(ctx, note(id, "u1", base.Add(time.Duration(i)*time.Minute)))).To(Succeed())
		}

		got, err := repo.ListByIdentity(ctx, "u1", 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal("c"))
	})

	It("should keep one row when the same notification is saved twice", func() {
		n := note("n1", "u1", base)

		Expect(repo.Save(ctx, n)).To(Succeed())
		Expect(repo.Save(ctx, n)).To(Succeed())

		count, err := repo.CountByIdentity(ctx, "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))
	})

	It("should drop the table on rollback", func() {
		Expect(sqlite.Rollback(ctx, db)).To(Succeed())

		err := repo.Save(ctx, note("n1", "u1", base))
		Expect(err).To(HaveOccurred())

		Expect(sqlite.Migrate(ctx, db)).To(Succeed())
		Expect(repo.Save(ctx, note("n1", "u1", base))).To(Succeed())
	})
})
