package checkouttoken

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutToken is a single-use, time-limited reference to one pending
// payment, handed to the paying customer's browser. A token is consumable
// at most once and only before ExpiresAt; expiry is a derived predicate,
// not a stored state.
type CheckoutToken struct {
	Token           string          `gorm:"primaryKey;column:token" json:"token"`
	TenantID        string          `gorm:"column:tenant_id;type:uuid;not null;index:idx_checkout_tokens_tenant_used" json:"tenant_id"`
	PaymentIntentID *string         `gorm:"column:payment_intent_id" json:"payment_intent_id,omitempty"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency        string          `gorm:"column:currency;not null" json:"currency"`
	ProductName     string          `gorm:"column:product_name;not null" json:"product_name"`
	CustomerEmail   *string         `gorm:"column:customer_email" json:"customer_email,omitempty"`
	SuccessURL      *string         `gorm:"column:success_url" json:"success_url,omitempty"`
	CancelURL       *string         `gorm:"column:cancel_url" json:"cancel_url,omitempty"`
	ExpiresAt       time.Time       `gorm:"column:expires_at;not null;index" json:"expires_at"`
	Used            bool            `gorm:"column:used;default:false;index:idx_checkout_tokens_tenant_used" json:"used"`
	CreatedAt       time.Time       `gorm:"column:created_at;default:now()" json:"created_at"`
}

func (CheckoutToken) TableName() string {
	return "checkout_tokens"
}

func (t *CheckoutToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
