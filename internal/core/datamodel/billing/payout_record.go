package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PayoutStatusPaid   = "paid"
	PayoutStatusFailed = "failed"
)

// PayoutRecord is an append-only audit entry for a gateway payout outcome.
// Rows are written once and never updated or deleted. One payout can
// legitimately produce two rows, a paid one and a later failed one (bank
// bounce after arrival), so uniqueness is per outcome, not per payout.
type PayoutRecord struct {
	ID             int64           `gorm:"primaryKey"`
	StripePayoutID string          `gorm:"column:stripe_payout_id;not null;uniqueIndex:idx_payout_outcome"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	Currency       string          `gorm:"column:currency;not null"`
	Status         string          `gorm:"column:status;not null;uniqueIndex:idx_payout_outcome"`
	Detail         *string         `gorm:"column:detail"`
	CreatedAt      time.Time       `gorm:"column:created_at;default:now()"`
}

func (PayoutRecord) TableName() string {
	return "payout_records"
}
