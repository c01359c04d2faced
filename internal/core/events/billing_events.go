package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeInvoicePaid          = "billing.invoice.paid"
	EventTypeInvoicePaymentFailed = "billing.invoice.payment_failed"
	EventTypePayoutRecorded       = "billing.payout.recorded"
)

type InvoicePaidEvent struct {
	BaseEvent
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	BusinessID    int64           `json:"business_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Currency      string          `json:"currency"`
}

func NewInvoicePaidEvent(invoiceID, businessID int64, invoiceNumber string, amountPaid decimal.Decimal, currency string) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvoicePaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invoice_id":     invoiceID,
				"invoice_number": invoiceNumber,
				"business_id":    businessID,
				"amount_paid":    amountPaid.String(),
				"currency":       currency,
			},
		},
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		BusinessID:    businessID,
		AmountPaid:    amountPaid,
		Currency:      currency,
	}
}

// InvoicePaymentFailedEvent is the side channel that drives failure
// notifications. BusinessEmail may be empty when no contact is on file; the
// subscriber must tolerate that.
type InvoicePaymentFailedEvent struct {
	BaseEvent
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	BusinessName  string          `json:"business_name"`
	BusinessEmail string          `json:"business_email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	FailureReason string          `json:"failure_reason"`
}

func NewInvoicePaymentFailedEvent(invoiceID int64, invoiceNumber, businessName, businessEmail string, amount decimal.Decimal, currency, failureReason string) *InvoicePaymentFailedEvent {
	return &InvoicePaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvoicePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invoice_id":     invoiceID,
				"invoice_number": invoiceNumber,
				"business_name":  businessName,
				"business_email": businessEmail,
				"amount":         amount.String(),
				"currency":       currency,
				"failure_reason": failureReason,
			},
		},
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		BusinessName:  businessName,
		BusinessEmail: businessEmail,
		Amount:        amount,
		Currency:      currency,
		FailureReason: failureReason,
	}
}

type PayoutRecordedEvent struct {
	BaseEvent
	StripePayoutID string          `json:"stripe_payout_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
}

func NewPayoutRecordedEvent(stripePayoutID string, amount decimal.Decimal, currency, status string) *PayoutRecordedEvent {
	return &PayoutRecordedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePayoutRecorded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"stripe_payout_id": stripePayoutID,
				"amount":           amount.String(),
				"currency":         currency,
				"status":           status,
			},
		},
		StripePayoutID: stripePayoutID,
		Amount:         amount,
		Currency:       currency,
		Status:         status,
	}
}
