package payment_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	tenantModel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	paymentPkg "github.com/frahmantamala/hosted-checkout/internal/payment"
	tenantPkg "github.com/frahmantamala/hosted-checkout/internal/tenant"
	"github.com/frahmantamala/hosted-checkout/internal/transport"
)

var _ = Describe("PaymentHandler", func() {
	var (
		handler *paymentPkg.Handler
		service *paymentPkg.Service
	)

	listRequest := func(query string, authed bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments"+query, nil)
		if authed {
			ctx := tenantPkg.ContextWithTenant(req.Context(), &tenantModel.Tenant{ID: "tenant-1", IsActive: true})
			req = req.WithContext(ctx)
		}
		rec := httptest.NewRecorder()
		handler.ListPayments(rec, req)
		return rec
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = paymentPkg.NewService(paymentPkg.NewMemoryRepository(), logger)
		handler = paymentPkg.NewHandler(transport.NewBaseHandler(logger), service, logger)

		for i := 0; i < 25; i++ {
			intentID := fmt.Sprintf("pi_h%02d", i)
			_, err := service.CreatePending("tenant-1", intentID, decimal.NewFromInt(10), "usd", nil, nil)
			Expect(err).ToNot(HaveOccurred())
		}
	})

	It("should require an authenticated tenant", func() {
		rec := listRequest("", false)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should page results and report hasMore", func() {
		rec := listRequest("?limit=10&offset=0", true)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp paymentPkg.ListPaymentsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Payments).To(HaveLen(10))
		Expect(resp.Pagination.Total).To(Equal(int64(25)))
		Expect(resp.Pagination.HasMore).To(BeTrue())
	})

	It("should report hasMore false on the last page", func() {
		rec := listRequest("?limit=10&offset=20", true)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp paymentPkg.ListPaymentsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Payments).To(HaveLen(5))
		Expect(resp.Pagination.HasMore).To(BeFalse())
	})

	It("should fall back to the default limit for out-of-range values", func() {
		rec := listRequest("?limit=9999", true)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp paymentPkg.ListPaymentsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Pagination.Limit).To(Equal(50))
		Expect(resp.Payments).To(HaveLen(25))
	})

	It("should reject an unknown status filter", func() {
		rec := listRequest("?status=refunded", true)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
