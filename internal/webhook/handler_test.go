package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stripe/stripe-go/v75"

	"github.com/frahmantamala/billing-reconciliation/internal"
	"github.com/frahmantamala/billing-reconciliation/internal/transport"
	"github.com/frahmantamala/billing-reconciliation/internal/webhook"
)

type stubService struct {
	processError error
	events       []stripe.Event
	hadDeadline  bool
}

func (s *stubService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	_, s.hadDeadline = ctx.Deadline()
	s.events = append(s.events, event)
	return s.processError
}

// signPayload builds a Stripe-Signature header the way the gateway does: an
// HMAC-SHA256 over "<timestamp>.<body>" keyed with the shared secret.
func signPayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

var _ = Describe("WebhookHandler", func() {
	const secret = "whsec_test_secret"

	var (
		handler *webhook.Handler
		stub    *stubService
		logger  *slog.Logger

		envelope []byte
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		stub = &stubService{}
		handler = webhook.NewHandler(transport.NewBaseHandler(logger), stub, internal.StripeConfig{
			WebhookSecret: secret,
			MaxBodyBytes:  65536,
		})

		envelope = []byte(`{"id":"evt_test_1","type":"invoice.paid","data":{"object":{"id":"in_1","number":"INV-2026-0001","amount_paid":5000}}}`)
	})

	post := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("Stripe-Signature", signature)
		}
		recorder := httptest.NewRecorder()
		handler.HandleStripeWebhook(recorder, req)
		return recorder
	}

	decodeError := func(recorder *httptest.ResponseRecorder) map[string]interface{} {
		var body map[string]interface{}
		Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
		errObj, ok := body["error"].(map[string]interface{})
		Expect(ok).To(BeTrue())
		return errObj
	}

	Context("when the signature header is missing", func() {
		It("should reject with 400 and not invoke processing", func() {
			recorder := post(envelope, "")

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(recorder)["code"]).To(Equal(string(internal.ErrCodeMissingSignature)))
			Expect(stub.events).To(BeEmpty())
		})
	})

	Context("when the signature does not match the body", func() {
		It("should reject with 400 and not invoke processing", func() {
			signature := signPayload("whsec_wrong_secret", envelope, time.Now())
			recorder := post(envelope, signature)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(recorder)["code"]).To(Equal(string(internal.ErrCodeInvalidSignature)))
			Expect(stub.events).To(BeEmpty())
		})
	})

	Context("when the body was altered after signing", func() {
		It("should reject with 400", func() {
			signature := signPayload(secret, envelope, time.Now())
			tampered := bytes.Replace(envelope, []byte("5000"), []byte("5001"), 1)
			recorder := post(tampered, signature)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(stub.events).To(BeEmpty())
		})
	})

	Context("when the signature timestamp is outside the tolerance", func() {
		It("should reject with 400", func() {
			signature := signPayload(secret, envelope, time.Now().Add(-10*time.Minute))
			recorder := post(envelope, signature)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(stub.events).To(BeEmpty())
		})
	})

	Context("when the request is authentic", func() {
		It("should acknowledge with 200 and pass the parsed event to the service", func() {
			signature := signPayload(secret, envelope, time.Now())
			recorder := post(envelope, signature)

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var ack webhook.AckResponse
			Expect(json.Unmarshal(recorder.Body.Bytes(), &ack)).To(Succeed())
			Expect(ack.Received).To(BeTrue())

			Expect(stub.events).To(HaveLen(1))
			Expect(stub.events[0].ID).To(Equal("evt_test_1"))
			Expect(string(stub.events[0].Type)).To(Equal(webhook.EventInvoicePaid))
			Expect(stub.hadDeadline).To(BeTrue())
		})
	})

	Context("when processing fails with a terminal validation error", func() {
		It("should return the error's own status", func() {
			stub.processError = internal.NewValidationError("failed to parse invoice payload", internal.ErrCodeMalformedPayload)
			signature := signPayload(secret, envelope, time.Now())
			recorder := post(envelope, signature)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(recorder)["code"]).To(Equal(string(internal.ErrCodeMalformedPayload)))
		})
	})

	Context("when processing fails on storage", func() {
		It("should return 500 so the gateway redelivers", func() {
			stub.processError = internal.NewStorageError("failed to mark invoice paid", fmt.Errorf("connection reset"))
			signature := signPayload(secret, envelope, time.Now())
			recorder := post(envelope, signature)

			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
			Expect(decodeError(recorder)["code"]).To(Equal(string(internal.ErrCodeStorageFailure)))
		})
	})

	Context("when the body exceeds the intake limit", func() {
		It("should refuse the request before verification", func() {
			handler = webhook.NewHandler(transport.NewBaseHandler(logger), stub, internal.StripeConfig{
				WebhookSecret: secret,
				MaxBodyBytes:  16,
			})
			signature := signPayload(secret, envelope, time.Now())
			recorder := post(envelope, signature)

			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(stub.events).To(BeEmpty())
		})
	})
})
