package webhook

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
)

// InvoiceRepository is the invoice side of the billing store. Lookups return
// (nil, nil) when no record matches; a non-nil error always means the store
// itself failed.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id int64) (*billing.Invoice, error)
	GetByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*billing.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*billing.Invoice, error)
	MarkPaid(ctx context.Context, id int64, stripeInvoiceID string, amountPaid decimal.Decimal, paidAt time.Time) error
	MarkFailed(ctx context.Context, id int64, stripeInvoiceID string, reason string, failedAt time.Time) error
	MarkOverdue(ctx context.Context, id int64) error
}

type BusinessRepository interface {
	GetByID(ctx context.Context, id int64) (*billing.Business, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*billing.Business, error)
	UpdateSubscription(ctx context.Context, id int64, status string, stripeSubscriptionID *string, currentPeriodEnd *time.Time) error
	CancelSubscription(ctx context.Context, id int64) error
}

// Resolver maps gateway-supplied identifiers onto internal billing records
// through an ordered set of lookup strategies. A miss is never an error:
// retrying will not manifest a record that does not exist, so callers
// acknowledge and log instead.
type Resolver struct {
	invoices   InvoiceRepository
	businesses BusinessRepository
	logger     *slog.Logger
}

func NewResolver(invoices InvoiceRepository, businesses BusinessRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		invoices:   invoices,
		businesses: businesses,
		logger:     logger,
	}
}

// ResolveInvoice looks up by the gateway invoice id first (the authoritative
// linkage once established) and falls back to the human invoice number. The
// fallback tolerates asynchronous first contact: an invoice can exist
// internally before it is ever billed through the gateway.
func (r *Resolver) ResolveInvoice(ctx context.Context, stripeInvoiceID, invoiceNumber string) (*billing.Invoice, error) {
	if stripeInvoiceID != "" {
		inv, err := r.invoices.GetByStripeInvoiceID(ctx, stripeInvoiceID)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			return inv, nil
		}
	}

	if invoiceNumber == "" {
		return nil, nil
	}

	inv, err := r.invoices.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		r.logger.Info("invoice resolved via number fallback",
			"invoice_number", invoiceNumber,
			"stripe_invoice_id", stripeInvoiceID)
	}
	return inv, nil
}

// ResolveInvoiceByIntentMetadata resolves a direct-charge event through the
// correlation id planted in the intent metadata at creation time.
func (r *Resolver) ResolveInvoiceByIntentMetadata(ctx context.Context, metadata map[string]string) (*billing.Invoice, error) {
	raw := metadata[MetadataInvoiceKey]
	if raw == "" {
		return nil, nil
	}

	invoiceID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.logger.Warn("intent metadata carries non-numeric invoice id",
			"invoice_id", raw)
		return nil, nil
	}

	return r.invoices.GetByID(ctx, invoiceID)
}

func (r *Resolver) ResolveBusiness(ctx context.Context, businessID int64) (*billing.Business, error) {
	return r.businesses.GetByID(ctx, businessID)
}

// ResolveBusinessForSubscription tries the business id from the event
// metadata first, then the subscription id itself.
func (r *Resolver) ResolveBusinessForSubscription(ctx context.Context, metadata map[string]string, stripeSubscriptionID string) (*billing.Business, error) {
	if raw := metadata[MetadataBusinessKey]; raw != "" {
		if businessID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			b, err := r.businesses.GetByID(ctx, businessID)
			if err != nil {
				return nil, err
			}
			if b != nil {
				return b, nil
			}
		}
	}

	if stripeSubscriptionID == "" {
		return nil, nil
	}
	return r.businesses.GetByStripeSubscriptionID(ctx, stripeSubscriptionID)
}

// ContactFor reads a business's persisted contact fields for notification
// composition. Absence of contact info must never abort a state transition,
// so lookup failures degrade to placeholders.
func (r *Resolver) ContactFor(ctx context.Context, businessID int64) (name, email string) {
	b, err := r.businesses.GetByID(ctx, businessID)
	if err != nil || b == nil {
		r.logger.Warn("business contact lookup failed, using placeholders",
			"business_id", businessID, "error", err)
		return "unknown", ""
	}

	name = b.Name
	if name == "" {
		name = "unknown"
	}
	return name, b.ContactEmail
}
