package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses. Draft is the implicit pre-gateway state; the
// reconciliation engine only ever moves an invoice to paid, failed or
// overdue.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusFailed  = "failed"
	InvoiceStatusOverdue = "overdue"
)

// Invoice is a billable charge to a business. It is created by the upstream
// billing process and mutated exclusively by the webhook engine; it is never
// deleted. StripeInvoiceID stays nil until the gateway first references the
// invoice, which is why resolution falls back to the human invoice number.
type Invoice struct {
	ID              int64           `gorm:"primaryKey"`
	BusinessID      int64           `gorm:"column:business_id;not null;index"`
	StripeInvoiceID *string         `gorm:"column:stripe_invoice_id;uniqueIndex"`
	InvoiceNumber   string          `gorm:"column:invoice_number;not null;uniqueIndex"`
	Status          string          `gorm:"column:status;default:draft"`
	AmountDue       decimal.Decimal `gorm:"column:amount_due;type:numeric(12,2)"`
	AmountPaid      decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2)"`
	Currency        string          `gorm:"column:currency;not null"`
	FailureReason   *string         `gorm:"column:failure_reason"`
	PaidAt          *time.Time      `gorm:"column:paid_at"`
	FailedAt        *time.Time      `gorm:"column:failed_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Invoice) TableName() string {
	return "invoices"
}
