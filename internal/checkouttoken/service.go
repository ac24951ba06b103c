package checkouttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/checkouttoken"
	tenantmodel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	"github.com/frahmantamala/hosted-checkout/internal/provider"
)

const (
	tokenPrefix = "checkout_"
	// DefaultTTL bounds how long a minted token stays redeemable.
	DefaultTTL = 30 * time.Minute
)

type RepositoryAPI interface {
	Create(t *checkouttoken.CheckoutToken) error
	GetByToken(token string) (*checkouttoken.CheckoutToken, error)
	MarkAllUsedForTenant(tenantID string) (int64, error)
	DeleteExpired(before time.Time) (int64, error)
}

// TenantReader is the slice of the credential store the validator needs.
type TenantReader interface {
	GetByID(tenantID string) (*tenantmodel.Tenant, error)
	GetSecretKey(tenantID string) (string, error)
}

type IssueParams struct {
	TenantID        string
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	ProductName     string
	CustomerEmail   *string
	SuccessURL      *string
	CancelURL       *string
	TTL             time.Duration
}

// CheckoutView is what the hosted payment page renders from: the bound
// payment details plus the live provider client secret and the tenant's
// publishable key.
type CheckoutView struct {
	Token           string          `json:"token"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ProductName     string          `json:"productName"`
	CustomerEmail   *string         `json:"customerEmail,omitempty"`
	PaymentIntentID string          `json:"paymentIntentId"`
	ClientSecret    string          `json:"clientSecret"`
	SuccessURL      *string         `json:"successUrl,omitempty"`
	CancelURL       *string         `json:"cancelUrl,omitempty"`
	StoreName       string          `json:"storeName"`
	PublishableKey  string          `json:"publishableKey"`
}

type Service struct {
	repo     RepositoryAPI
	tenants  TenantReader
	provider provider.API
	logger   *slog.Logger
	now      func() time.Time

	// TTL overrides DefaultTTL for tokens issued without an explicit one
	TTL time.Duration
}

func NewService(repo RepositoryAPI, tenants TenantReader, providerAPI provider.API, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		tenants:  tenants,
		provider: providerAPI,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue mints a single-use token bound to one (tenant, payment intent)
// pair. The token string carries 256 bits of entropy.
func (s *Service) Issue(params IssueParams) (*checkouttoken.CheckoutToken, error) {
	tokenString, err := generateToken()
	if err != nil {
		return nil, errors.NewInternalError("token generation failed", err)
	}

	ttl := params.TTL
	if ttl <= 0 {
		ttl = s.TTL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	t := &checkouttoken.CheckoutToken{
		Token:           tokenString,
		TenantID:        params.TenantID,
		PaymentIntentID: &params.PaymentIntentID,
		Amount:          params.Amount,
		Currency:        params.Currency,
		ProductName:     params.ProductName,
		CustomerEmail:   params.CustomerEmail,
		SuccessURL:      params.SuccessURL,
		CancelURL:       params.CancelURL,
		ExpiresAt:       s.now().Add(ttl),
		Used:            false,
	}

	if err := s.repo.Create(t); err != nil {
		s.logger.Error("checkout token insert failed", "tenant_id", params.TenantID, "error", err)
		return nil, errors.NewInternalError("token insert failed", err)
	}

	s.logger.Info("checkout token issued",
		"tenant_id", params.TenantID,
		"payment_intent_id", params.PaymentIntentID,
		"expires_at", t.ExpiresAt)
	return t, nil
}

// Validate resolves a token to its checkout view. It is read-only with
// respect to the used flag: page reloads before payment completion must
// keep working, so only InvalidateAllForTenant flips tokens to used.
func (s *Service) Validate(ctx context.Context, tokenString string) (*CheckoutView, error) {
	t, err := s.repo.GetByToken(tokenString)
	if err != nil {
		return nil, errors.ErrTokenNotFound.WithCause(err)
	}

	if t.Used {
		return nil, errors.ErrTokenUsed
	}
	if t.ExpiredAt(s.now()) {
		return nil, errors.ErrTokenExpired
	}

	owner, err := s.tenants.GetByID(t.TenantID)
	if err != nil {
		return nil, err
	}

	view := &CheckoutView{
		Token:          t.Token,
		Amount:         t.Amount,
		Currency:       t.Currency,
		ProductName:    t.ProductName,
		CustomerEmail:  t.CustomerEmail,
		SuccessURL:     t.SuccessURL,
		CancelURL:      t.CancelURL,
		StoreName:      owner.Name,
		PublishableKey: owner.PublishableKey,
	}

	if t.PaymentIntentID != nil && *t.PaymentIntentID != "" {
		view.PaymentIntentID = *t.PaymentIntentID

		secretKey, err := s.tenants.GetSecretKey(t.TenantID)
		if err != nil {
			return nil, err
		}
		intent, err := s.provider.GetIntent(ctx, secretKey, *t.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		view.ClientSecret = intent.ClientSecret
	}

	return view, nil
}

// InvalidateAllForTenant marks every not-yet-used token for the tenant as
// used. Expired tokens are already dead so flipping them too is harmless.
func (s *Service) InvalidateAllForTenant(tenantID string) (int64, error) {
	n, err := s.repo.MarkAllUsedForTenant(tenantID)
	if err != nil {
		return 0, errors.NewInternalError("token invalidation failed", err)
	}
	return n, nil
}

// PurgeExpired deletes tokens past expiry. Hygiene only; correctness never
// depends on it because Validate checks the clock.
func (s *Service) PurgeExpired() (int64, error) {
	n, err := s.repo.DeleteExpired(s.now())
	if err != nil {
		return 0, errors.NewInternalError("token purge failed", err)
	}
	return n, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(b), nil
}
