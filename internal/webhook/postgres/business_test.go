package postgres

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
)

var _ = ginkgo.Describe("BusinessRepository", func() {
	var (
		db   *gorm.DB
		repo *BusinessRepository
		ctx  context.Context
	)

	seedBusiness := func(stripeSubscriptionID *string) *billing.Business {
		b := &billing.Business{
			Name:                 "Acme Studios",
			ContactEmail:         "billing@acme.test",
			StripeSubscriptionID: stripeSubscriptionID,
			SubscriptionStatus:   "active",
		}
		gomega.Expect(db.Create(b).Error).ToNot(gomega.HaveOccurred())
		return b
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		db = openTestDB()
		repo = &BusinessRepository{db: db}
	})

	ginkgo.Describe("lookups", func() {
		ginkgo.It("should find a business by subscription id", func() {
			subscriptionID := "sub_abc"
			seeded := seedBusiness(&subscriptionID)

			found, err := repo.GetByStripeSubscriptionID(ctx, "sub_abc")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(found).ToNot(gomega.BeNil())
			gomega.Expect(found.ID).To(gomega.Equal(seeded.ID))
		})

		ginkgo.It("should return nil without error when nothing matches", func() {
			found, err := repo.GetByStripeSubscriptionID(ctx, "sub_missing")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(found).To(gomega.BeNil())

			found, err = repo.GetByID(ctx, 999)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(found).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("UpdateSubscription", func() {
		ginkgo.It("should update status, linkage and period end", func() {
			seeded := seedBusiness(nil)
			subscriptionID := "sub_new"
			periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour)

			err := repo.UpdateSubscription(ctx, seeded.ID, "past_due", &subscriptionID, &periodEnd)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, err := repo.GetByID(ctx, seeded.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.SubscriptionStatus).To(gomega.Equal("past_due"))
			gomega.Expect(stored.StripeSubscriptionID).ToNot(gomega.BeNil())
			gomega.Expect(*stored.StripeSubscriptionID).To(gomega.Equal("sub_new"))
			gomega.Expect(stored.CurrentPeriodEnd).ToNot(gomega.BeNil())
			gomega.Expect(*stored.CurrentPeriodEnd).To(gomega.BeTemporally("~", periodEnd, time.Second))
		})

		ginkgo.It("should leave the period end alone when none is given", func() {
			seeded := seedBusiness(nil)
			subscriptionID := "sub_new"

			err := repo.UpdateSubscription(ctx, seeded.ID, "active", &subscriptionID, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, err := repo.GetByID(ctx, seeded.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.CurrentPeriodEnd).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("CancelSubscription", func() {
		ginkgo.It("should set the cancelled status and clear the linkage", func() {
			subscriptionID := "sub_abc"
			seeded := seedBusiness(&subscriptionID)

			err := repo.CancelSubscription(ctx, seeded.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, err := repo.GetByID(ctx, seeded.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.SubscriptionStatus).To(gomega.Equal(billing.SubscriptionStatusCancelled))
			gomega.Expect(stored.StripeSubscriptionID).To(gomega.BeNil())
		})
	})
})
