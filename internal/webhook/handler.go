package webhook

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v75"
	stripewebhook "github.com/stripe/stripe-go/v75/webhook"

	"github.com/frahmantamala/billing-reconciliation/internal"
	"github.com/frahmantamala/billing-reconciliation/internal/transport"
)

// processTimeout bounds the storage work for one event. Anything that
// overruns it is not acknowledged, so the gateway redelivers and idempotence
// absorbs the repeat.
const processTimeout = 15 * time.Second

type ServiceAPI interface {
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

// Handler is the single intake endpoint for gateway webhooks. The signature
// is verified over the exact raw body bytes; re-serializing the payload
// before verification would invalidate it.
type Handler struct {
	*transport.BaseHandler
	service       ServiceAPI
	webhookSecret string
	maxBodyBytes  int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, cfg internal.StripeConfig) *Handler {
	return &Handler{
		BaseHandler:   baseHandler,
		service:       service,
		webhookSecret: cfg.WebhookSecret,
		maxBodyBytes:  cfg.MaxBodyBytes,
	}
}

func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.Logger.Error("failed to read webhook body", "error", err)
		h.WriteError(w, http.StatusServiceUnavailable, "error reading request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.writeAppError(w, internal.ErrMissingSignature)
		return
	}

	// ConstructEventWithOptions verifies the HMAC against the shared secret
	// with the default 5 minute timestamp tolerance, then parses the
	// envelope. Bad HMAC, stale timestamp and malformed envelope are all
	// terminal: the gateway must not retry them.
	event, err := stripewebhook.ConstructEventWithOptions(
		payload,
		signature,
		h.webhookSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.Logger.Error("webhook signature verification failed", "error", err)
		h.writeAppError(w, internal.ErrInvalidSignature)
		return
	}

	h.Logger.Info("received gateway event",
		"event_id", event.ID,
		"event_type", event.Type)

	ctx, cancel := internal.WithTimeout(r.Context(), processTimeout)
	defer cancel()

	if err := h.service.ProcessEvent(ctx, event); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			h.writeAppError(w, appErr)
			return
		}
		h.WriteError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	h.WriteJSON(w, http.StatusOK, AckResponse{Received: true})
}

func (h *Handler) writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}
