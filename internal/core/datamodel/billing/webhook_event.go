package billing

import "time"

// WebhookEvent is the seen-event ledger. The unique index on StripeEventID is
// the duplicate-suppression key for transitions that are not naturally
// idempotent, such as the payout append: a redelivered event inserts zero
// rows and is acknowledged without a second append.
type WebhookEvent struct {
	ID            int64     `gorm:"primaryKey"`
	StripeEventID string    `gorm:"column:stripe_event_id;not null;uniqueIndex"`
	EventType     string    `gorm:"column:event_type;not null"`
	ReceivedAt    time.Time `gorm:"column:received_at;default:now()"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
