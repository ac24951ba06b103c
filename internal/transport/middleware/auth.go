package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	tenantsvc "github.com/frahmantamala/hosted-checkout/internal/tenant"
	"github.com/frahmantamala/hosted-checkout/pkg/logger"
)

// KeyVerifier authenticates a presented API key against the credential
// store and returns the owning tenant.
type KeyVerifier interface {
	VerifyAPIKey(presentedKey string) (*tenant.Tenant, error)
}

// APIKeyAuth authenticates merchant requests with a Bearer API key. On
// success the tenant is attached to the request context; handlers never see
// the raw key. The key itself is never logged.
func APIKeyAuth(verifier KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" {
				writeAuthError(w, apperrors.ErrInvalidAPIKey)
				return
			}

			t, err := verifier.VerifyAPIKey(key)
			if err != nil {
				logger.From(r.Context()).Warn("api key rejected", "remote_addr", r.RemoteAddr)
				writeAuthError(w, err)
				return
			}

			ctx := tenantsvc.ContextWithTenant(r.Context(), t)
			ctx = logger.With(ctx, "tenant_id", t.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("Bearer "):])
}

func writeAuthError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		appErr = apperrors.ErrInvalidAPIKey
	}
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
