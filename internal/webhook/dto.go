package webhook

// Gateway event kinds the engine reconciles. Anything outside this set is
// acknowledged and logged so new gateway kinds never fail intake.
const (
	EventInvoicePaid            = "invoice.paid"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
	EventInvoiceOverdue         = "invoice.overdue"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
	EventPayoutPaid             = "payout.paid"
	EventPayoutFailed           = "payout.failed"
)

// MetadataInvoiceKey is the correlation key planted in a payment intent's
// metadata when the charge is created. It is the only resolution strategy for
// the intent event family; there is no invoice-number fallback on that path.
const MetadataInvoiceKey = "invoice_id"

// MetadataBusinessKey correlates subscription events back to a business when
// present; resolution falls back to the subscription id otherwise.
const MetadataBusinessKey = "business_id"

// DefaultFailureReason is persisted when the gateway reports a payment
// failure without a usable decline message.
const DefaultFailureReason = "payment declined"

// AckResponse is returned for every successfully routed event, including
// unknown kinds and not-found resolutions.
type AckResponse struct {
	Received bool `json:"received"`
}
