package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/checkouttoken"
	"github.com/frahmantamala/hosted-checkout/internal/tenant"
	"github.com/frahmantamala/hosted-checkout/internal/transport"
)

// TokenValidator is the read side of the token service used by the public
// validate endpoint.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*checkouttoken.CheckoutView, error)
}

type Handler struct {
	*transport.BaseHandler
	service   *Service
	validator TokenValidator
	logger    *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, validator TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		validator:   validator,
		logger:      logger,
	}
}

// CreateCheckout handles POST /api/v1/checkout/create
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.TenantFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidAPIKey))
		return
	}

	var dto CreateCheckoutDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error("CreateCheckout: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.service.CreateCheckout(r.Context(), t, dto)
	if err != nil {
		h.logger.Error("CreateCheckout: service error", "error", err, "tenant_id", t.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

type validateTokenResponse struct {
	Valid    bool                        `json:"valid"`
	Token    string                      `json:"token"`
	Checkout *checkouttoken.CheckoutView `json:"checkout"`
	Store    storeView                   `json:"store"`
}

type storeView struct {
	Name           string `json:"name"`
	PublishableKey string `json:"publishableKey"`
}

// ValidateToken handles GET /api/v1/checkout/validate-token. Public: the
// paying customer's browser calls it to render the hosted page. Not found,
// expired and used all map to 404 with distinct codes.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		h.HandleError(w, errors.NewValidationError("token is required", errors.ErrCodeValidationFailed))
		return
	}

	view, err := h.validator.Validate(r.Context(), tokenString)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, validateTokenResponse{
		Valid:    true,
		Token:    view.Token,
		Checkout: view,
		Store: storeView{
			Name:           view.StoreName,
			PublishableKey: view.PublishableKey,
		},
	})
}
