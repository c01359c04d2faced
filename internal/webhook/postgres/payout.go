package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
	webhookpkg "github.com/frahmantamala/billing-reconciliation/internal/webhook"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) webhookpkg.PayoutRepository {
	return &PayoutRepository{db: db}
}

// AppendOnce inserts the seen-event marker and the payout row in one
// transaction. The unique constraint on stripe_event_id makes the
// check-and-insert atomic: a redelivered event inserts zero marker rows and
// the payout append is skipped entirely.
func (r *PayoutRepository) AppendOnce(ctx context.Context, eventID, eventType string, record *billing.PayoutRecord) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := billing.WebhookEvent{
			StripeEventID: eventID,
			EventType:     eventType,
			ReceivedAt:    time.Now().UTC(),
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_event_id"}},
			DoNothing: true,
		}).Create(&marker)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// already processed
			return nil
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}
		created = true
		return nil
	})

	return created, err
}
