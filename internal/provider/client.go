package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/client"

	apperrors "github.com/frahmantamala/hosted-checkout/internal"
)

// IntentParams is the input for creating a provider payment intent.
// AmountMinor is in the currency's smallest unit.
type IntentParams struct {
	AmountMinor   int64
	Currency      string
	Description   string
	CustomerEmail string
	Metadata      map[string]string
}

// Intent is the subset of the provider's payment intent the platform needs.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// API is the provider boundary. Implementations must honor the context
// deadline; on timeout the caller cannot know whether the provider-side
// intent was created, so a retryable upstream error is returned instead of
// guessing.
type API interface {
	CreateIntent(ctx context.Context, secretKey string, params IntentParams) (*Intent, error)
	GetIntent(ctx context.Context, secretKey, intentID string) (*Intent, error)
}

// Client talks to Stripe with per-tenant secret keys. A fresh client.API is
// initialized per call because each tenant brings its own key; every call
// carries the configured timeout as a context deadline.
type Client struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{timeout: timeout, logger: logger}
}

func (c *Client) api(secretKey string) *client.API {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: c.timeout},
	})
	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return sc
}

func (c *Client) CreateIntent(ctx context.Context, secretKey string, p IntentParams) (*Intent, error) {
	ctx, cancel := apperrors.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if p.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(p.CustomerEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api(secretKey).PaymentIntents.New(params)
	if err != nil {
		return nil, c.mapError("create payment intent", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (c *Client) GetIntent(ctx context.Context, secretKey, intentID string) (*Intent, error) {
	ctx, cancel := apperrors.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := c.api(secretKey).PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, c.mapError("retrieve payment intent", err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// mapError converts SDK failures into the upstream taxonomy. The provider's
// message stays in the cause for logs; clients get a generic message.
func (c *Client) mapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.logger.Error("provider call timed out", "op", op, "error", err)
		return apperrors.NewUpstreamError("payment provider timed out, retry later", err)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		c.logger.Error("provider returned an error",
			"op", op,
			"code", stripeErr.Code,
			"status", stripeErr.HTTPStatusCode,
			"request_id", stripeErr.RequestID)
		return apperrors.NewUpstreamError("payment provider rejected the request", err)
	}

	c.logger.Error("provider call failed", "op", op, "error", err)
	return apperrors.NewUpstreamError("payment provider unavailable", err)
}
