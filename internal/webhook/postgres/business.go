package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
	webhookpkg "github.com/frahmantamala/billing-reconciliation/internal/webhook"
)

type BusinessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) webhookpkg.BusinessRepository {
	return &BusinessRepository{db: db}
}

func (r *BusinessRepository) GetByID(ctx context.Context, id int64) (*billing.Business, error) {
	var b billing.Business
	err := r.db.WithContext(ctx).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*billing.Business, error) {
	var b billing.Business
	err := r.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepository) UpdateSubscription(ctx context.Context, id int64, status string, stripeSubscriptionID *string, currentPeriodEnd *time.Time) error {
	updates := map[string]interface{}{
		"subscription_status": status,
		"updated_at":          time.Now().UTC(),
	}
	if stripeSubscriptionID != nil {
		updates["stripe_subscription_id"] = *stripeSubscriptionID
	}
	if currentPeriodEnd != nil {
		updates["current_period_end"] = *currentPeriodEnd
	}

	return r.db.WithContext(ctx).Model(&billing.Business{}).Where("id = ?", id).Updates(updates).Error
}

// CancelSubscription clears the subscription linkage; the period end is kept
// for grace-period display.
func (r *BusinessRepository) CancelSubscription(ctx context.Context, id int64) error {
	updates := map[string]interface{}{
		"subscription_status":    billing.SubscriptionStatusCancelled,
		"stripe_subscription_id": nil,
		"updated_at":             time.Now().UTC(),
	}

	return r.db.WithContext(ctx).Model(&billing.Business{}).Where("id = ?", id).Updates(updates).Error
}
