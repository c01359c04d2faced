package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/billing-reconciliation/internal/core/events"
)

// EventHandler bridges the event bus to the notifier. It subscribes to the
// invoice payment failure event; the paid and payout events intentionally
// have no notification subscriber.
type EventHandler struct {
	notifier *PaymentFailureNotifier
	logger   *slog.Logger
}

func NewEventHandler(notifier *PaymentFailureNotifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		notifier: notifier,
		logger:   logger,
	}
}

func (h *EventHandler) HandleInvoicePaymentFailed(ctx context.Context, event events.Event) error {
	failedEvent, ok := event.(*events.InvoicePaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failure handler", "event_type", event.EventType())
		return fmt.Errorf("expected InvoicePaymentFailedEvent, got %T", event)
	}

	h.logger.Info("dispatching payment failure notifications",
		"invoice_number", failedEvent.InvoiceNumber,
		"business_name", failedEvent.BusinessName,
		"event_id", failedEvent.EventID())

	h.notifier.NotifyPaymentFailure(PaymentFailureNotice{
		InvoiceNumber: failedEvent.InvoiceNumber,
		BusinessName:  failedEvent.BusinessName,
		BusinessEmail: failedEvent.BusinessEmail,
		Amount:        failedEvent.Amount,
		Currency:      failedEvent.Currency,
		Reason:        failedEvent.FailureReason,
		OccurredAt:    failedEvent.OccurredAt(),
	})

	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeInvoicePaymentFailed, h.HandleInvoicePaymentFailed)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeInvoicePaymentFailed})
}
