package postgres

import (
	"context"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
)

var _ = ginkgo.Describe("PayoutRepository", func() {
	var (
		db   *gorm.DB
		repo *PayoutRepository
		ctx  context.Context
	)

	newRecord := func(payoutID string) *billing.PayoutRecord {
		return &billing.PayoutRecord{
			StripePayoutID: payoutID,
			Amount:         decimal.RequireFromString("2500.00"),
			Currency:       "eur",
			Status:         billing.PayoutStatusPaid,
		}
	}

	newFailedRecord := func(payoutID string) *billing.PayoutRecord {
		detail := "account closed"
		return &billing.PayoutRecord{
			StripePayoutID: payoutID,
			Amount:         decimal.RequireFromString("2500.00"),
			Currency:       "eur",
			Status:         billing.PayoutStatusFailed,
			Detail:         &detail,
		}
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		db = openTestDB()
		repo = &PayoutRepository{db: db}
	})

	ginkgo.Describe("AppendOnce", func() {
		ginkgo.It("should append the record and the seen-event marker on first delivery", func() {
			created, err := repo.AppendOnce(ctx, "evt_1", "payout.paid", newRecord("po_1"))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())

			var records []billing.PayoutRecord
			gomega.Expect(db.Find(&records).Error).ToNot(gomega.HaveOccurred())
			gomega.Expect(records).To(gomega.HaveLen(1))
			gomega.Expect(records[0].StripePayoutID).To(gomega.Equal("po_1"))

			var markers []billing.WebhookEvent
			gomega.Expect(db.Find(&markers).Error).ToNot(gomega.HaveOccurred())
			gomega.Expect(markers).To(gomega.HaveLen(1))
			gomega.Expect(markers[0].StripeEventID).To(gomega.Equal("evt_1"))
		})

		ginkgo.It("should skip the append on redelivery of the same event", func() {
			created, err := repo.AppendOnce(ctx, "evt_1", "payout.paid", newRecord("po_1"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())

			created, err = repo.AppendOnce(ctx, "evt_1", "payout.paid", newRecord("po_1"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeFalse())

			var count int64
			gomega.Expect(db.Model(&billing.PayoutRecord{}).Count(&count).Error).ToNot(gomega.HaveOccurred())
			gomega.Expect(count).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should record a later failed outcome for an already-paid payout", func() {
			created, err := repo.AppendOnce(ctx, "evt_paid_1", "payout.paid", newRecord("po_1"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())

			created, err = repo.AppendOnce(ctx, "evt_failed_2", "payout.failed", newFailedRecord("po_1"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())

			var records []billing.PayoutRecord
			gomega.Expect(db.Order("id").Find(&records).Error).ToNot(gomega.HaveOccurred())
			gomega.Expect(records).To(gomega.HaveLen(2))
			gomega.Expect(records[0].Status).To(gomega.Equal(billing.PayoutStatusPaid))
			gomega.Expect(records[1].Status).To(gomega.Equal(billing.PayoutStatusFailed))
		})

		ginkgo.It("should append distinct events independently", func() {
			created, err := repo.AppendOnce(ctx, "evt_1", "payout.paid", newRecord("po_1"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())

			created, err = repo.AppendOnce(ctx, "evt_2", "payout.failed", newRecord("po_2"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(created).To(gomega.BeTrue())

			var count int64
			gomega.Expect(db.Model(&billing.PayoutRecord{}).Count(&count).Error).ToNot(gomega.HaveOccurred())
			gomega.Expect(count).To(gomega.Equal(int64(2)))
		})
	})
})
