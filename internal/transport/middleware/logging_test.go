package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/hosted-checkout/internal/transport/middleware"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("LoggingMiddleware", func() {
	var logBuf bytes.Buffer

	serve := func(body string) (*httptest.ResponseRecorder, int) {
		logBuf.Reset()
		logger := slog.New(slog.NewTextHandler(&logBuf, nil))

		var received int
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, err := io.ReadAll(r.Body)
			Expect(err).ToNot(HaveOccurred())
			received = len(b)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		middleware.LoggingMiddleware(logger)(next).ServeHTTP(rec, req)
		return rec, received
	}

	It("should hand the handler the full body while eliding large ones from logs", func() {
		payload := strings.Repeat("a", 64<<10)

		rec, received := serve(payload)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(received).To(Equal(len(payload)))
		Expect(logBuf.String()).To(ContainSubstring("ELIDED"))
		Expect(logBuf.String()).ToNot(ContainSubstring(payload))
	})

	It("should filter secret fields from logged JSON bodies", func() {
		_, received := serve(`{"amount": 5, "api_key": "pk_live_should_not_appear"}`)

		Expect(received).To(BeNumerically(">", 0))
		Expect(logBuf.String()).To(ContainSubstring("[FILTERED]"))
		Expect(logBuf.String()).ToNot(ContainSubstring("pk_live_should_not_appear"))
	})
})
