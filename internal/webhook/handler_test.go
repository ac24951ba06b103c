package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stripe/stripe-go/v83"

	paymentPkg "github.com/frahmantamala/hosted-checkout/internal/payment"
	"github.com/frahmantamala/hosted-checkout/internal/transport"
	webhookPkg "github.com/frahmantamala/hosted-checkout/internal/webhook"
)

// fakeVerifier accepts only the secret it was built with.
type fakeVerifier struct {
	acceptSecret string
	lastSecrets  []string
}

func (f *fakeVerifier) Verify(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	f.lastSecrets = append(f.lastSecrets, secret)
	if secret != f.acceptSecret {
		return stripe.Event{}, errors.New("signature mismatch")
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

type fakeSecretStore struct {
	secrets map[string]string
}

func (f *fakeSecretStore) GetWebhookSecret(tenantID string) (string, error) {
	return f.secrets[tenantID], nil
}

func eventBody(id, eventType, tenantID string) []byte {
	payload := map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "pi_handler",
				"amount":   1000,
				"currency": "usd",
				"metadata": map[string]string{"tenant_id": tenantID},
			},
		},
	}
	raw, err := json.Marshal(payload)
	Expect(err).ToNot(HaveOccurred())
	return raw
}

var _ = Describe("WebhookHandler", func() {
	var (
		handler  *webhookPkg.Handler
		verifier *fakeVerifier
		secrets  *fakeSecretStore
		ledger   *paymentPkg.Service
	)

	newHandler := func(globalSecret string, insecureDev bool) *webhookPkg.Handler {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := webhookPkg.NewService(newMockEventLog(), ledger, nil)
		return webhookPkg.NewHandler(transport.NewBaseHandler(logger), service, verifier, secrets, globalSecret, insecureDev)
	}

	post := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("Stripe-Signature", signature)
		}
		rec := httptest.NewRecorder()
		handler.HandleEvent(rec, req.WithContext(context.Background()))
		return rec
	}

	BeforeEach(func() {
		verifier = &fakeVerifier{acceptSecret: "whsec_global"}
		secrets = &fakeSecretStore{secrets: map[string]string{}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledger = paymentPkg.NewService(paymentPkg.NewMemoryRepository(), logger)
	})

	Context("with the platform signing secret", func() {
		BeforeEach(func() {
			handler = newHandler("whsec_global", false)
		})

		It("should accept a correctly signed event", func() {
			rec := post(eventBody("evt_h1", "customer.created", ""), "t=1,v1=sig")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp map[string]bool
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["received"]).To(BeTrue())
		})

		It("should reject a bad signature with 400", func() {
			verifier.acceptSecret = "whsec_other"

			rec := post(eventBody("evt_h2", "customer.created", ""), "t=1,v1=bad")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("with a per-tenant signing secret", func() {
		BeforeEach(func() {
			secrets.secrets["tenant-1"] = "whsec_tenant1"
			verifier = &fakeVerifier{acceptSecret: "whsec_tenant1"}
			handler = newHandler("whsec_global", false)
		})

		It("should verify with the tenant secret named by the payload hint", func() {
			rec := post(eventBody("evt_h3", "customer.created", "tenant-1"), "t=1,v1=sig")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(verifier.lastSecrets[0]).To(Equal("whsec_tenant1"))
		})

		It("should fall back to the platform secret when the tenant secret fails", func() {
			verifier.acceptSecret = "whsec_global"

			rec := post(eventBody("evt_h4", "customer.created", "tenant-1"), "t=1,v1=sig")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(verifier.lastSecrets).To(Equal([]string{"whsec_tenant1", "whsec_global"}))
		})
	})

	Context("with no resolvable secret", func() {
		It("should fail closed", func() {
			handler = newHandler("", false)

			rec := post(eventBody("evt_h5", "customer.created", ""), "t=1,v1=sig")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should accept unverified payloads only in insecure development mode", func() {
			handler = newHandler("", true)

			rec := post(eventBody("evt_h6", "customer.created", ""), "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
