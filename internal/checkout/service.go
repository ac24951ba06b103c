package checkout

import (
	"context"
	"log/slog"
	"net/url"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/checkouttoken"
	tokenmodel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/checkouttoken"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	"github.com/frahmantamala/hosted-checkout/internal/payment"
	"github.com/frahmantamala/hosted-checkout/internal/provider"
)

// TokenIssuer is the slice of the token service the orchestrator uses.
type TokenIssuer interface {
	Issue(params checkouttoken.IssueParams) (*tokenmodel.CheckoutToken, error)
}

// SecretResolver resolves a tenant's decrypted provider secret.
type SecretResolver interface {
	GetSecretKey(tenantID string) (string, error)
}

// Service is the checkout orchestrator: secret resolution, provider intent
// creation, token minting and the pending ledger row, in that order. A
// failure after the provider intent exists leaves an orphaned intent; the
// webhook reconciler's upsert path recovers it, so no distributed
// transaction is attempted here.
type Service struct {
	secrets  SecretResolver
	provider provider.API
	tokens   TokenIssuer
	ledger   payment.ServiceAPI
	baseURL  string
	logger   *slog.Logger
}

func NewService(secrets SecretResolver, providerAPI provider.API, tokens TokenIssuer, ledger payment.ServiceAPI, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		secrets:  secrets,
		provider: providerAPI,
		tokens:   tokens,
		ledger:   ledger,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, t *tenant.Tenant, dto CreateCheckoutDTO) (*CreateCheckoutResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	secretKey, err := s.secrets.GetSecretKey(t.ID)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"tenant_id":    t.ID,
		"tenant_name":  t.Name,
		"product_name": dto.ProductName,
	}
	var email string
	if dto.CustomerEmail != nil {
		email = *dto.CustomerEmail
		metadata["customer_email"] = email
	}

	intent, err := s.provider.CreateIntent(ctx, secretKey, provider.IntentParams{
		AmountMinor:   provider.MinorUnits(dto.Amount, dto.Currency),
		Currency:      dto.Currency,
		Description:   dto.ProductName,
		CustomerEmail: email,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(checkouttoken.IssueParams{
		TenantID:        t.ID,
		PaymentIntentID: intent.ID,
		Amount:          dto.Amount,
		Currency:        dto.Currency,
		ProductName:     dto.ProductName,
		CustomerEmail:   dto.CustomerEmail,
		SuccessURL:      dto.SuccessURL,
		CancelURL:       dto.CancelURL,
	})
	if err != nil {
		s.logger.Error("token issue failed after intent creation, intent orphaned until reconciled",
			"tenant_id", t.ID,
			"payment_intent_id", intent.ID,
			"error", err)
		return nil, err
	}

	_, err = s.ledger.CreatePending(t.ID, intent.ID, dto.Amount, dto.Currency, dto.CustomerEmail, map[string]interface{}{
		"product_name": dto.ProductName,
		"tenant_name":  t.Name,
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeDuplicatePayment {
			// the webhook beat us to it; the ledger row already exists
			s.logger.Info("ledger row already present for intent", "payment_intent_id", intent.ID)
		} else {
			s.logger.Error("pending ledger insert failed, intent orphaned until reconciled",
				"tenant_id", t.ID,
				"payment_intent_id", intent.ID,
				"error", err)
			return nil, err
		}
	}

	s.logger.Info("checkout created",
		"tenant_id", t.ID,
		"payment_intent_id", intent.ID,
		"currency", dto.Currency)

	return &CreateCheckoutResponse{
		CheckoutURL:     s.checkoutURL(token.Token),
		Token:           token.Token,
		PaymentIntentID: intent.ID,
		Amount:          dto.Amount,
		Currency:        dto.Currency,
		ExpiresAt:       token.ExpiresAt,
	}, nil
}

func (s *Service) checkoutURL(token string) string {
	return s.baseURL + "/checkout?token=" + url.QueryEscape(token)
}
