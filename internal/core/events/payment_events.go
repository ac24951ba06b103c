package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentCanceled  = "payment.canceled"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID       string `json:"payment_id"`
	TenantID        string `json:"tenant_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

func NewPaymentCompletedEvent(paymentID, tenantID, paymentIntentID, amount, currency string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":        paymentID,
				"tenant_id":         tenantID,
				"payment_intent_id": paymentIntentID,
				"amount":            amount,
				"currency":          currency,
			},
		},
		PaymentID:       paymentID,
		TenantID:        tenantID,
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
		Currency:        currency,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID       string `json:"payment_id"`
	TenantID        string `json:"tenant_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Reason          string `json:"reason,omitempty"`
}

func NewPaymentFailedEvent(paymentID, tenantID, paymentIntentID, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":        paymentID,
				"tenant_id":         tenantID,
				"payment_intent_id": paymentIntentID,
				"reason":            reason,
			},
		},
		PaymentID:       paymentID,
		TenantID:        tenantID,
		PaymentIntentID: paymentIntentID,
		Reason:          reason,
	}
}
