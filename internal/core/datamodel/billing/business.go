package billing

import "time"

const SubscriptionStatusCancelled = "cancelled"

// Business is the billing-responsible tenant. Subscription fields are
// mutated only by subscription-kind gateway events.
type Business struct {
	ID                   int64      `gorm:"primaryKey"`
	Name                 string     `gorm:"column:name;not null"`
	ContactEmail         string     `gorm:"column:contact_email"`
	StripeSubscriptionID *string    `gorm:"column:stripe_subscription_id;index"`
	SubscriptionStatus   string     `gorm:"column:subscription_status"`
	CurrentPeriodEnd     *time.Time `gorm:"column:current_period_end"`
	CreatedAt            time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;default:now()"`
}

func (Business) TableName() string {
	return "businesses"
}
