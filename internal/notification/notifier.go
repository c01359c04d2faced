package notification

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentFailureNotice carries everything needed to compose both failure
// messages. BusinessEmail may be empty when no contact is on file.
type PaymentFailureNotice struct {
	InvoiceNumber string
	BusinessName  string
	BusinessEmail string
	Amount        decimal.Decimal
	Currency      string
	Reason        string
	OccurredAt    time.Time
}

// PaymentFailureNotifier sends two independently-composed messages per
// failure: one to the billing contact, one to a fixed operations address.
// Each send is best-effort and isolated; neither failure blocks the other and
// neither ever escalates to the caller.
type PaymentFailureNotifier struct {
	mailer   Mailer
	opsEmail string
	logger   *slog.Logger
}

func NewPaymentFailureNotifier(mailer Mailer, opsEmail string, logger *slog.Logger) *PaymentFailureNotifier {
	return &PaymentFailureNotifier{
		mailer:   mailer,
		opsEmail: opsEmail,
		logger:   logger,
	}
}

func (n *PaymentFailureNotifier) NotifyPaymentFailure(notice PaymentFailureNotice) {
	n.sendOpsAlert(notice)
	n.sendBusinessNotice(notice)
}

func (n *PaymentFailureNotifier) sendOpsAlert(notice PaymentFailureNotice) {
	subject := fmt.Sprintf("Payment failed: invoice %s", notice.InvoiceNumber)
	body := fmt.Sprintf(
		"<p>A payment has failed and may need manual follow-up.</p>"+
			"<ul>"+
			"<li>Invoice: %s</li>"+
			"<li>Business: %s</li>"+
			"<li>Amount: %s %s</li>"+
			"<li>Reason: %s</li>"+
			"<li>Time: %s</li>"+
			"</ul>",
		notice.InvoiceNumber,
		notice.BusinessName,
		notice.Amount.StringFixed(2),
		notice.Currency,
		notice.Reason,
		notice.OccurredAt.UTC().Format(time.RFC3339),
	)

	if err := n.mailer.SendEmail(n.opsEmail, subject, body); err != nil {
		n.logger.Error("ops payment failure alert not delivered",
			"invoice_number", notice.InvoiceNumber,
			"error", err)
	}
}

func (n *PaymentFailureNotifier) sendBusinessNotice(notice PaymentFailureNotice) {
	if notice.BusinessEmail == "" {
		n.logger.Warn("no contact email on file, skipping business notice",
			"invoice_number", notice.InvoiceNumber,
			"business_name", notice.BusinessName)
		return
	}

	subject := fmt.Sprintf("Payment for invoice %s could not be processed", notice.InvoiceNumber)
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>We could not process the payment of %s %s for invoice %s (%s). "+
			"The payment will be retried automatically over the next few days; "+
			"please check that your payment method is up to date.</p>",
		notice.BusinessName,
		notice.Amount.StringFixed(2),
		notice.Currency,
		notice.InvoiceNumber,
		notice.Reason,
	)

	if err := n.mailer.SendEmail(notice.BusinessEmail, subject, body); err != nil {
		n.logger.Error("business payment failure notice not delivered",
			"invoice_number", notice.InvoiceNumber,
			"to", notice.BusinessEmail,
			"error", err)
	}
}
