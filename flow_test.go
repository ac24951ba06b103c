package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"

	checkoutPkg "github.com/frahmantamala/hosted-checkout/internal/checkout"
	"github.com/frahmantamala/hosted-checkout/internal/checkouttoken"
	tokenModel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/checkouttoken"
	paymentModel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
	tenantModel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	paymentPkg "github.com/frahmantamala/hosted-checkout/internal/payment"
	"github.com/frahmantamala/hosted-checkout/internal/provider"
	webhookPkg "github.com/frahmantamala/hosted-checkout/internal/webhook"
)

type staticSecrets struct{ secret string }

func (s staticSecrets) GetSecretKey(tenantID string) (string, error) { return s.secret, nil }

type stubProvider struct{ nextID int }

func (p *stubProvider) CreateIntent(ctx context.Context, secretKey string, params provider.IntentParams) (*provider.Intent, error) {
	p.nextID++
	id := fmt.Sprintf("pi_flow_%d", p.nextID)
	return &provider.Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (p *stubProvider) GetIntent(ctx context.Context, secretKey, intentID string) (*provider.Intent, error) {
	return &provider.Intent{ID: intentID, Status: "requires_payment_method"}, nil
}

type stubIssuer struct{ issued int }

func (i *stubIssuer) Issue(params checkouttoken.IssueParams) (*tokenModel.CheckoutToken, error) {
	i.issued++
	return &tokenModel.CheckoutToken{
		Token:           fmt.Sprintf("checkout_flow_%d", i.issued),
		TenantID:        params.TenantID,
		PaymentIntentID: &params.PaymentIntentID,
		Amount:          params.Amount,
		Currency:        params.Currency,
		ExpiresAt:       time.Now().Add(30 * time.Minute),
	}, nil
}

type memoryEventLog struct{ seen map[string]bool }

func (m *memoryEventLog) InsertProcessedEvent(eventID, eventType string) (bool, error) {
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *memoryEventLog) DeleteProcessedEvent(eventID string) error {
	delete(m.seen, eventID)
	return nil
}

func (m *memoryEventLog) PurgeProcessedBefore(cutoff time.Time) (int64, error) { return 0, nil }

var _ = Describe("Checkout to settlement flow", func() {
	var (
		ledgerRepo *paymentPkg.MemoryRepository
		ledger     *paymentPkg.Service
		checkout   *checkoutPkg.Service
		reconciler *webhookPkg.Service
		merchant   *tenantModel.Tenant
	)

	succeededEvent := func(eventID, intentID string, amountMinor int64) stripe.Event {
		raw, err := json.Marshal(map[string]interface{}{
			"id":       intentID,
			"amount":   amountMinor,
			"currency": "usd",
			"metadata": map[string]string{"tenant_id": merchant.ID},
		})
		Expect(err).ToNot(HaveOccurred())
		return stripe.Event{
			ID:   eventID,
			Type: stripe.EventType("payment_intent.succeeded"),
			Data: &stripe.EventData{Raw: raw},
		}
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledgerRepo = paymentPkg.NewMemoryRepository()
		ledger = paymentPkg.NewService(ledgerRepo, logger)
		checkout = checkoutPkg.NewService(staticSecrets{secret: "sk_test_flow"}, &stubProvider{}, &stubIssuer{}, ledger, "https://pay.example.com", logger)
		reconciler = webhookPkg.NewService(&memoryEventLog{seen: map[string]bool{}}, ledger, nil)
		merchant = &tenantModel.Tenant{ID: "tenant-flow", Name: "Flow Store", IsActive: true}
	})

	It("should carry a checkout from pending to completed and list it", func() {
		resp, err := checkout.CreateCheckout(context.Background(), merchant, checkoutPkg.CreateCheckoutDTO{
			Amount:      decimal.RequireFromString("19.99"),
			Currency:    "usd",
			ProductName: "Flow Widget",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.PaymentIntentID).To(Equal("pi_flow_1"))

		_, total, err := ledger.List(merchant.ID, paymentModel.StatusPending, 10, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(int64(1)))

		err = reconciler.ProcessEvent(context.Background(), succeededEvent("evt_flow_1", resp.PaymentIntentID, 1999))
		Expect(err).ToNot(HaveOccurred())

		items, total, err := ledger.List(merchant.ID, paymentModel.StatusCompleted, 10, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(int64(1)))
		Expect(items[0].Amount.Equal(decimal.RequireFromString("19.99"))).To(BeTrue())
		Expect(*items[0].PaymentIntentID).To(Equal(resp.PaymentIntentID))
	})

	It("should settle at most once when the provider redelivers", func() {
		resp, err := checkout.CreateCheckout(context.Background(), merchant, checkoutPkg.CreateCheckoutDTO{
			Amount:      decimal.RequireFromString("19.99"),
			Currency:    "usd",
			ProductName: "Flow Widget",
		})
		Expect(err).ToNot(HaveOccurred())

		event := succeededEvent("evt_flow_dup", resp.PaymentIntentID, 1999)
		Expect(reconciler.ProcessEvent(context.Background(), event)).To(Succeed())
		Expect(reconciler.ProcessEvent(context.Background(), event)).To(Succeed())

		_, total, err := ledger.List(merchant.ID, "", 10, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(int64(1)))
	})
})
