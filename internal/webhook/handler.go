package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v83"

	apperrors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/transport"
	"github.com/frahmantamala/hosted-checkout/pkg/logger"
)

// provider retries with exponential backoff, so payloads stay small; cap
// the body to keep a hostile sender from buffering the process out
const maxPayloadBytes = 1 << 20

// SecretResolver returns the decrypted per-tenant webhook signing secret,
// or empty when the tenant has not stored one.
type SecretResolver interface {
	GetWebhookSecret(tenantID string) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	service      *Service
	verifier     SignatureVerifier
	secrets      SecretResolver
	globalSecret string
	insecureDev  bool
}

func NewHandler(base *transport.BaseHandler, service *Service, verifier SignatureVerifier, secrets SecretResolver, globalSecret string, insecureDev bool) *Handler {
	return &Handler{
		BaseHandler:  base,
		service:      service,
		verifier:     verifier,
		secrets:      secrets,
		globalSecret: globalSecret,
		insecureDev:  insecureDev,
	}
}

// eventTenantHint pulls the tenant id stamped on the event's object
// metadata. The hint only selects which signing secret to try; trust comes
// from the signature check that follows.
type eventTenantHint struct {
	Data struct {
		Object struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleEvent receives provider webhook deliveries. The endpoint is
// unauthenticated; the HMAC signature over the raw body is the
// authentication. Always returns 200 with {"received": true} once the event
// is accepted, even when the ledger ignores it, so the provider stops
// retrying.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		h.WriteError(w, apperrors.NewValidationError("unreadable request body", apperrors.ErrCodeValidationFailed))
		return
	}

	event, err := h.decodeAndVerify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn("webhook signature rejected", "error", err)
		h.WriteError(w, apperrors.ErrWebhookSignature)
		return
	}

	if err := h.service.ProcessEvent(r.Context(), event); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) decodeAndVerify(payload []byte, sigHeader string) (stripe.Event, error) {
	if secret := h.tenantSecret(payload); secret != "" {
		if event, err := h.verifier.Verify(payload, sigHeader, secret); err == nil {
			return event, nil
		}
		// fall through: a stale rotated secret must not block deliveries
		// signed with the platform secret
	}

	if h.globalSecret != "" {
		return h.verifier.Verify(payload, sigHeader, h.globalSecret)
	}

	if h.insecureDev {
		logger.LoggerWrapper().Warn("accepting unverified webhook payload, insecure development mode is enabled")
		return parseUnverified(payload)
	}

	return stripe.Event{}, apperrors.ErrWebhookSignature
}

// tenantSecret resolves the per-tenant signing secret named by the payload's
// metadata hint. Failures degrade to the global secret.
func (h *Handler) tenantSecret(payload []byte) string {
	if h.secrets == nil {
		return ""
	}

	var hint eventTenantHint
	if err := json.Unmarshal(payload, &hint); err != nil {
		return ""
	}
	tenantID := hint.Data.Object.Metadata["tenant_id"]
	if tenantID == "" {
		return ""
	}

	secret, err := h.secrets.GetWebhookSecret(tenantID)
	if err != nil {
		return ""
	}
	return secret
}
