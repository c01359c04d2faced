package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/billing-reconciliation/internal/core/events"
	"github.com/frahmantamala/billing-reconciliation/internal/notification"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

// fakeMailer records every send and can fail per recipient.
type fakeMailer struct {
	sent       []sentEmail
	failFor    map[string]error
	sendErrAll error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: make(map[string]error)}
}

func (m *fakeMailer) SendEmail(to, subject, htmlBody string) error {
	if m.sendErrAll != nil {
		return m.sendErrAll
	}
	if err := m.failFor[to]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, body: htmlBody})
	return nil
}

var _ = Describe("PaymentFailureNotifier", func() {
	const opsEmail = "ops@example.com"

	var (
		notifier *notification.PaymentFailureNotifier
		mailer   *fakeMailer
		logger   *slog.Logger
		notice   notification.PaymentFailureNotice
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mailer = newFakeMailer()
		notifier = notification.NewPaymentFailureNotifier(mailer, opsEmail, logger)

		notice = notification.PaymentFailureNotice{
			InvoiceNumber: "INV-2026-0001",
			BusinessName:  "Acme Studios",
			BusinessEmail: "billing@acme.test",
			Amount:        decimal.RequireFromString("50.00"),
			Currency:      "EUR",
			Reason:        "card declined",
			OccurredAt:    time.Now().UTC(),
		}
	})

	Context("when both recipients are reachable", func() {
		It("should send the ops alert and the business notice", func() {
			notifier.NotifyPaymentFailure(notice)

			Expect(mailer.sent).To(HaveLen(2))
			Expect(mailer.sent[0].to).To(Equal(opsEmail))
			Expect(mailer.sent[0].body).To(ContainSubstring("INV-2026-0001"))
			Expect(mailer.sent[0].body).To(ContainSubstring("card declined"))
			Expect(mailer.sent[1].to).To(Equal("billing@acme.test"))
			Expect(mailer.sent[1].body).To(ContainSubstring("Acme Studios"))
			Expect(mailer.sent[1].body).To(ContainSubstring("50.00"))
		})
	})

	Context("when the ops send fails", func() {
		It("should still attempt the business notice", func() {
			mailer.failFor[opsEmail] = errors.New("relay refused")

			notifier.NotifyPaymentFailure(notice)

			Expect(mailer.sent).To(HaveLen(1))
			Expect(mailer.sent[0].to).To(Equal("billing@acme.test"))
		})
	})

	Context("when the business send fails", func() {
		It("should still deliver the ops alert", func() {
			mailer.failFor["billing@acme.test"] = errors.New("mailbox full")

			notifier.NotifyPaymentFailure(notice)

			Expect(mailer.sent).To(HaveLen(1))
			Expect(mailer.sent[0].to).To(Equal(opsEmail))
		})
	})

	Context("when no business email is on file", func() {
		It("should send only the ops alert", func() {
			notice.BusinessEmail = ""

			notifier.NotifyPaymentFailure(notice)

			Expect(mailer.sent).To(HaveLen(1))
			Expect(mailer.sent[0].to).To(Equal(opsEmail))
		})
	})

	Context("when every send fails", func() {
		It("should swallow the failures", func() {
			mailer.sendErrAll = errors.New("smtp down")

			Expect(func() {
				notifier.NotifyPaymentFailure(notice)
			}).ToNot(Panic())
			Expect(mailer.sent).To(BeEmpty())
		})
	})
})

var _ = Describe("EventHandler", func() {
	var (
		handler *notification.EventHandler
		mailer  *fakeMailer
		logger  *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mailer = newFakeMailer()
		notifier := notification.NewPaymentFailureNotifier(mailer, "ops@example.com", logger)
		handler = notification.NewEventHandler(notifier, logger)
	})

	Context("when an invoice payment failure event arrives", func() {
		It("should dispatch both notifications from the event fields", func() {
			event := events.NewInvoicePaymentFailedEvent(
				1, "INV-2026-0001", "Acme Studios", "billing@acme.test",
				decimal.RequireFromString("50.00"), "EUR", "card declined")

			err := handler.HandleInvoicePaymentFailed(context.Background(), event)

			Expect(err).ToNot(HaveOccurred())
			Expect(mailer.sent).To(HaveLen(2))
		})
	})

	Context("when the event has the wrong concrete type", func() {
		It("should return an error and send nothing", func() {
			event := events.NewInvoicePaidEvent(1, 42, "INV-2026-0001", decimal.RequireFromString("50.00"), "EUR")

			err := handler.HandleInvoicePaymentFailed(context.Background(), event)

			Expect(err).To(HaveOccurred())
			Expect(mailer.sent).To(BeEmpty())
		})
	})

	Context("when wired through the event bus", func() {
		It("should receive published payment failure events", func() {
			bus := events.NewEventBus(logger)
			handler.RegisterEventHandlers(bus)

			event := events.NewInvoicePaymentFailedEvent(
				1, "INV-2026-0001", "Acme Studios", "billing@acme.test",
				decimal.RequireFromString("50.00"), "EUR", "card declined")

			err := bus.PublishSync(context.Background(), event)

			Expect(err).ToNot(HaveOccurred())
			Expect(mailer.sent).To(HaveLen(2))
		})
	})
})
