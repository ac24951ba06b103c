package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Payment is one row of the ledger: a payment attempt owned by a tenant,
// keyed by the provider's payment intent (and optionally checkout session)
// identifiers. Rows are never deleted; status only moves forward.
type Payment struct {
	ID                string          `gorm:"primaryKey;type:uuid" json:"id"`
	TenantID          string          `gorm:"column:tenant_id;type:uuid;not null;index:idx_payments_tenant_status;index:idx_payments_tenant_created" json:"tenant_id"`
	PaymentIntentID   *string         `gorm:"column:payment_intent_id;index" json:"payment_intent_id,omitempty"`
	CheckoutSessionID *string         `gorm:"column:checkout_session_id;index" json:"checkout_session_id,omitempty"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency          string          `gorm:"column:currency;not null" json:"currency"`
	Status            string          `gorm:"column:status;default:pending;index:idx_payments_tenant_status" json:"status"`
	CustomerEmail     *string         `gorm:"column:customer_email" json:"customer_email,omitempty"`
	Metadata          json.RawMessage `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;default:now();index:idx_payments_tenant_created,sort:desc" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;default:now()" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the ledger statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
