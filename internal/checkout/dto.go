package checkout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/common/validation"
)

// CreateCheckoutDTO is the tenant-facing payload for starting a checkout.
type CreateCheckoutDTO struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ProductName   string          `json:"productName"`
	CustomerEmail *string         `json:"customerEmail,omitempty"`
	SuccessURL    *string         `json:"successUrl,omitempty"`
	CancelURL     *string         `json:"cancelUrl,omitempty"`
}

// Validate normalizes and checks the payload before any external call.
func (dto *CreateCheckoutDTO) Validate() error {
	dto.Currency = strings.ToLower(strings.TrimSpace(dto.Currency))
	if dto.Currency == "" {
		dto.Currency = "usd"
	}
	dto.ProductName = strings.TrimSpace(dto.ProductName)
	if dto.ProductName == "" {
		dto.ProductName = "Payment"
	}

	validator := validation.NewValidator()
	validator.Field("amount", dto.Amount).Required().PositiveAmount()
	validator.Field("currency", dto.Currency).OneOf(validation.SupportedCurrencies, errors.ErrCodeInvalidCurrency)
	validator.Field("productName", dto.ProductName).MaxLength(200)
	validator.Field("successUrl", dto.SuccessURL).URL()
	validator.Field("cancelUrl", dto.CancelURL).URL()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// CreateCheckoutResponse is returned to the tenant with 201.
type CreateCheckoutResponse struct {
	CheckoutURL     string          `json:"checkoutUrl"`
	Token           string          `json:"token"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ExpiresAt       time.Time       `json:"expiresAt"`
}
