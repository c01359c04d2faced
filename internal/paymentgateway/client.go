package paymentgateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

// Client is a thin wrapper around the Stripe SDK. It is constructed once at
// process start and injected wherever the engine needs to read back from the
// gateway; there is no lazily-initialized package-level singleton.
type Client struct {
	api    *client.API
	logger *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	api := &client.API{}
	api.Init(apiKey, nil)

	return &Client{
		api:    api,
		logger: logger,
	}
}

// GetPaymentIntent fetches a payment intent, used to recover decline detail
// that a webhook payload did not carry.
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		c.logger.Error("failed to fetch payment intent",
			"payment_intent_id", id,
			"error", err)
		return nil, fmt.Errorf("fetch payment intent %s: %w", id, err)
	}

	return pi, nil
}
