package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
	webhookpkg "github.com/frahmantamala/billing-reconciliation/internal/webhook"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) webhookpkg.InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*billing.Invoice, error) {
	var inv billing.Invoice
	err := r.db.WithContext(ctx).First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*billing.Invoice, error) {
	var inv billing.Invoice
	err := r.db.WithContext(ctx).Where("stripe_invoice_id = ?", stripeInvoiceID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var inv billing.Invoice
	err := r.db.WithContext(ctx).Where("invoice_number = ?", number).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkPaid is idempotent: paid_at is only set on the first application, so a
// redelivered paid event leaves the record byte-identical. The gateway
// invoice id is backfilled to establish the authoritative linkage.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id int64, stripeInvoiceID string, amountPaid decimal.Decimal, paidAt time.Time) error {
	updates := map[string]interface{}{
		"status":         billing.InvoiceStatusPaid,
		"amount_paid":    amountPaid,
		"paid_at":        gorm.Expr("COALESCE(paid_at, ?)", paidAt),
		"failure_reason": nil,
		"failed_at":      nil,
		"updated_at":     time.Now().UTC(),
	}
	if stripeInvoiceID != "" {
		updates["stripe_invoice_id"] = stripeInvoiceID
	}

	return r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("id = ?", id).Updates(updates).Error
}

func (r *InvoiceRepository) MarkFailed(ctx context.Context, id int64, stripeInvoiceID string, reason string, failedAt time.Time) error {
	updates := map[string]interface{}{
		"status":         billing.InvoiceStatusFailed,
		"failure_reason": reason,
		"failed_at":      gorm.Expr("COALESCE(failed_at, ?)", failedAt),
		"updated_at":     time.Now().UTC(),
	}
	if stripeInvoiceID != "" {
		updates["stripe_invoice_id"] = stripeInvoiceID
	}

	return r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("id = ?", id).Updates(updates).Error
}

func (r *InvoiceRepository) MarkOverdue(ctx context.Context, id int64) error {
	updates := map[string]interface{}{
		"status":     billing.InvoiceStatusOverdue,
		"updated_at": time.Now().UTC(),
	}

	return r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("id = ?", id).Updates(updates).Error
}
