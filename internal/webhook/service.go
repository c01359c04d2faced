package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v75"

	"github.com/frahmantamala/billing-reconciliation/internal"
	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
	"github.com/frahmantamala/billing-reconciliation/internal/core/events"
)

// PayoutRepository appends payout outcomes. AppendOnce records the gateway
// event id and the payout row in one transaction and reports false when the
// event id was already seen, which makes the append safe under redelivery.
type PayoutRepository interface {
	AppendOnce(ctx context.Context, eventID, eventType string, record *billing.PayoutRecord) (bool, error)
}

// IntentFetcher reads a payment intent back from the gateway. Used only to
// recover a decline message the webhook payload did not carry.
type IntentFetcher interface {
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// Service routes an authenticated gateway event to its transition applier.
// Every transition is idempotent against the external store, so the engine
// holds no in-process state and needs no locks; concurrent redelivery of the
// same event converges on the same end state.
type Service struct {
	resolver   *Resolver
	invoices   InvoiceRepository
	businesses BusinessRepository
	payouts    PayoutRepository
	gateway    IntentFetcher
	eventBus   *events.EventBus
	logger     *slog.Logger
}

func NewService(
	resolver *Resolver,
	invoices InvoiceRepository,
	businesses BusinessRepository,
	payouts PayoutRepository,
	gateway IntentFetcher,
	eventBus *events.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		resolver:   resolver,
		invoices:   invoices,
		businesses: businesses,
		payouts:    payouts,
		gateway:    gateway,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// ProcessEvent applies one gateway event. A nil return acknowledges the
// event; only storage failures come back as retryable AppErrors so the
// gateway's own redelivery can be relied upon.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) error {
	ctx = internal.ContextWithEventID(ctx, event.ID)

	switch event.Type {
	case EventInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	case EventInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(ctx, event)
	case EventInvoiceOverdue:
		return s.handleInvoiceOverdue(ctx, event)
	case EventPaymentIntentSucceeded:
		return s.handleIntentSucceeded(ctx, event)
	case EventPaymentIntentFailed:
		return s.handleIntentFailed(ctx, event)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case EventPayoutPaid:
		return s.handlePayout(ctx, event, billing.PayoutStatusPaid)
	case EventPayoutFailed:
		return s.handlePayout(ctx, event, billing.PayoutStatusFailed)
	default:
		s.logger.Info("unhandled webhook event type, acknowledging",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}
}

func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return internal.NewValidationError("failed to parse invoice payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveInvoice(ctx, inv.ID, inv.Number)
	if err != nil {
		return internal.NewStorageError("invoice lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "invoice", inv.ID, inv.Number)
		return nil
	}

	amountPaid := billing.FromMinorUnits(inv.AmountPaid)
	if err := s.invoices.MarkPaid(ctx, record.ID, inv.ID, amountPaid, time.Now().UTC()); err != nil {
		return internal.NewStorageError("failed to mark invoice paid", err)
	}

	s.logger.Info("invoice marked paid",
		"event_id", event.ID,
		"invoice_id", record.ID,
		"invoice_number", record.InvoiceNumber,
		"amount_paid", amountPaid.String())

	s.eventBus.Publish(ctx, events.NewInvoicePaidEvent(
		record.ID, record.BusinessID, record.InvoiceNumber, amountPaid, record.Currency))
	return nil
}

func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return internal.NewValidationError("failed to parse invoice payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveInvoice(ctx, inv.ID, inv.Number)
	if err != nil {
		return internal.NewStorageError("invoice lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "invoice", inv.ID, inv.Number)
		return nil
	}

	reason := DefaultFailureReason
	if inv.LastFinalizationError != nil && inv.LastFinalizationError.Msg != "" {
		reason = inv.LastFinalizationError.Msg
	}

	if err := s.invoices.MarkFailed(ctx, record.ID, inv.ID, reason, time.Now().UTC()); err != nil {
		return internal.NewStorageError("failed to mark invoice failed", err)
	}

	s.logger.Info("invoice marked failed",
		"event_id", event.ID,
		"invoice_id", record.ID,
		"invoice_number", record.InvoiceNumber,
		"failure_reason", reason)

	// Notification is a best-effort side channel: the subscriber sends to
	// the business contact and the ops address, and neither outcome affects
	// the acknowledgement.
	businessName, businessEmail := s.resolver.ContactFor(ctx, record.BusinessID)
	s.eventBus.Publish(ctx, events.NewInvoicePaymentFailedEvent(
		record.ID, record.InvoiceNumber, businessName, businessEmail,
		record.AmountDue, record.Currency, reason))
	return nil
}

func (s *Service) handleInvoiceOverdue(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return internal.NewValidationError("failed to parse invoice payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveInvoice(ctx, inv.ID, inv.Number)
	if err != nil {
		return internal.NewStorageError("invoice lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "invoice", inv.ID, inv.Number)
		return nil
	}

	if err := s.invoices.MarkOverdue(ctx, record.ID); err != nil {
		return internal.NewStorageError("failed to mark invoice overdue", err)
	}

	s.logger.Info("invoice marked overdue",
		"event_id", event.ID,
		"invoice_id", record.ID,
		"invoice_number", record.InvoiceNumber)
	return nil
}

func (s *Service) handleIntentSucceeded(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return internal.NewValidationError("failed to parse payment intent payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveInvoiceByIntentMetadata(ctx, pi.Metadata)
	if err != nil {
		return internal.NewStorageError("invoice lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "payment_intent", pi.ID, pi.Metadata[MetadataInvoiceKey])
		return nil
	}

	amountPaid := billing.FromMinorUnits(pi.Amount)
	if err := s.invoices.MarkPaid(ctx, record.ID, "", amountPaid, time.Now().UTC()); err != nil {
		return internal.NewStorageError("failed to mark invoice paid", err)
	}

	s.logger.Info("invoice marked paid via payment intent",
		"event_id", event.ID,
		"invoice_id", record.ID,
		"payment_intent_id", pi.ID,
		"amount_paid", amountPaid.String())
	return nil
}

// handleIntentFailed records the failure but deliberately sends no
// notification: that side channel exists only on the invoice-level failure
// path.
func (s *Service) handleIntentFailed(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return internal.NewValidationError("failed to parse payment intent payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveInvoiceByIntentMetadata(ctx, pi.Metadata)
	if err != nil {
		return internal.NewStorageError("invoice lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "payment_intent", pi.ID, pi.Metadata[MetadataInvoiceKey])
		return nil
	}

	reason := s.intentFailureReason(ctx, &pi)
	if err := s.invoices.MarkFailed(ctx, record.ID, "", reason, time.Now().UTC()); err != nil {
		return internal.NewStorageError("failed to mark invoice failed", err)
	}

	s.logger.Info("invoice marked failed via payment intent",
		"event_id", event.ID,
		"invoice_id", record.ID,
		"payment_intent_id", pi.ID,
		"failure_reason", reason)
	return nil
}

// intentFailureReason prefers the decline message in the payload, then a
// one-shot fetch of the intent from the gateway, then the default.
func (s *Service) intentFailureReason(ctx context.Context, pi *stripe.PaymentIntent) string {
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		return pi.LastPaymentError.Msg
	}

	if s.gateway != nil {
		fetched, err := s.gateway.GetPaymentIntent(ctx, pi.ID)
		if err != nil {
			s.logger.Warn("could not fetch payment intent for failure detail",
				"payment_intent_id", pi.ID, "error", err)
		} else if fetched.LastPaymentError != nil && fetched.LastPaymentError.Msg != "" {
			return fetched.LastPaymentError.Msg
		}
	}

	return DefaultFailureReason
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return internal.NewValidationError("failed to parse subscription payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveBusinessForSubscription(ctx, sub.Metadata, sub.ID)
	if err != nil {
		return internal.NewStorageError("business lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "subscription", sub.ID, sub.Metadata[MetadataBusinessKey])
		return nil
	}

	var periodEnd *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}
	subscriptionID := sub.ID

	if err := s.businesses.UpdateSubscription(ctx, record.ID, string(sub.Status), &subscriptionID, periodEnd); err != nil {
		return internal.NewStorageError("failed to update subscription", err)
	}

	s.logger.Info("business subscription updated",
		"event_id", event.ID,
		"business_id", record.ID,
		"subscription_id", subscriptionID,
		"subscription_status", string(sub.Status))
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return internal.NewValidationError("failed to parse subscription payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	record, err := s.resolver.ResolveBusinessForSubscription(ctx, sub.Metadata, sub.ID)
	if err != nil {
		return internal.NewStorageError("business lookup failed", err)
	}
	if record == nil {
		s.logUnresolved(ctx, "subscription", sub.ID, sub.Metadata[MetadataBusinessKey])
		return nil
	}

	if err := s.businesses.CancelSubscription(ctx, record.ID); err != nil {
		return internal.NewStorageError("failed to cancel subscription", err)
	}

	s.logger.Info("business subscription cancelled",
		"event_id", event.ID,
		"business_id", record.ID,
		"subscription_id", sub.ID)
	return nil
}

// handlePayout appends a payout outcome. The append is not naturally
// idempotent, so it goes through the seen-event ledger: a redelivered event
// is acknowledged without a second row.
func (s *Service) handlePayout(ctx context.Context, event stripe.Event, status string) error {
	var po stripe.Payout
	if err := json.Unmarshal(event.Data.Raw, &po); err != nil {
		return internal.NewValidationError("failed to parse payout payload", internal.ErrCodeMalformedPayload).WithCause(err)
	}

	amount := billing.FromMinorUnits(po.Amount)
	record := &billing.PayoutRecord{
		StripePayoutID: po.ID,
		Amount:         amount,
		Currency:       string(po.Currency),
		Status:         status,
		Detail:         payoutDetail(&po, status),
	}

	created, err := s.payouts.AppendOnce(ctx, event.ID, string(event.Type), record)
	if err != nil {
		return internal.NewStorageError("failed to append payout record", err)
	}
	if !created {
		s.logger.Info("duplicate payout event, acknowledging without append",
			"event_id", event.ID,
			"stripe_payout_id", po.ID)
		return nil
	}

	s.logger.Info("payout recorded",
		"event_id", event.ID,
		"stripe_payout_id", po.ID,
		"status", status,
		"amount", amount.String())

	s.eventBus.Publish(ctx, events.NewPayoutRecordedEvent(po.ID, amount, string(po.Currency), status))
	return nil
}

func payoutDetail(po *stripe.Payout, status string) *string {
	var detail string
	switch status {
	case billing.PayoutStatusFailed:
		detail = po.FailureMessage
	default:
		if po.ArrivalDate > 0 {
			detail = "arrival " + time.Unix(po.ArrivalDate, 0).UTC().Format(time.RFC3339)
		}
	}
	if detail == "" {
		return nil
	}
	return &detail
}

func (s *Service) logUnresolved(ctx context.Context, resource, gatewayID, fallbackID string) {
	s.logger.Warn("no internal record for gateway event, acknowledging",
		"event_id", internal.EventIDFromContext(ctx),
		"resource", resource,
		"gateway_id", gatewayID,
		"fallback_id", fallbackID)
}
