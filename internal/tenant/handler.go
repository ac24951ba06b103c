package tenant

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/transport"
)

// TokenInvalidator lets API key rotation revoke outstanding checkout tokens
// without importing the token package directly.
type TokenInvalidator interface {
	InvalidateAllForTenant(tenantID string) (int64, error)
}

type Handler struct {
	*transport.BaseHandler
	service          *Service
	tokenInvalidator TokenInvalidator
	logger           *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, tokenInvalidator TokenInvalidator, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:      baseHandler,
		service:          service,
		tokenInvalidator: tokenInvalidator,
		logger:           logger,
	}
}

// Register handles POST /api/v1/tenants/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterTenantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error("Register: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	t, rawKey, err := h.service.Register(dto)
	if err != nil {
		h.logger.Error("Register: service error", "error", err, "email", dto.Email)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, RegisterTenantResponse{
		TenantID:     t.ID,
		Name:         t.Name,
		Email:        t.Email,
		APIKey:       rawKey,
		APIKeyPrefix: t.APIKeyPrefix,
	})
}

// RotateCredentials handles POST /api/v1/tenants/credentials
func (h *Handler) RotateCredentials(w http.ResponseWriter, r *http.Request) {
	t, ok := TenantFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidAPIKey))
		return
	}

	var dto RotateCredentialsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := h.service.RotateProviderCredentials(t.ID, dto); err != nil {
		h.logger.Error("RotateCredentials: service error", "error", err, "tenant_id", t.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "credentials updated"})
}

// RotateAPIKey handles POST /api/v1/tenants/api-key/rotate. Outstanding
// checkout tokens are invalidated so nothing minted under the old key
// remains redeemable.
func (h *Handler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	t, ok := TenantFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidAPIKey))
		return
	}

	rawKey, err := h.service.RotateAPIKey(t.ID)
	if err != nil {
		h.logger.Error("RotateAPIKey: service error", "error", err, "tenant_id", t.ID)
		h.HandleServiceError(w, err)
		return
	}

	if h.tokenInvalidator != nil {
		invalidated, err := h.tokenInvalidator.InvalidateAllForTenant(t.ID)
		if err != nil {
			h.logger.Error("RotateAPIKey: token invalidation failed", "error", err, "tenant_id", t.ID)
		} else if invalidated > 0 {
			h.logger.Info("RotateAPIKey: checkout tokens invalidated", "tenant_id", t.ID, "count", invalidated)
		}
	}

	prefix, _ := KeyPrefix(rawKey)
	h.WriteJSON(w, http.StatusOK, RotateAPIKeyResponse{
		APIKey:       rawKey,
		APIKeyPrefix: prefix,
	})
}
