package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"

	apperrors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
	"github.com/frahmantamala/hosted-checkout/internal/core/events"
	"github.com/frahmantamala/hosted-checkout/internal/provider"
	"github.com/frahmantamala/hosted-checkout/pkg/logger"
)

// RepositoryAPI records processed event IDs so redelivered events become
// no-ops even when the status transition itself would be a valid repeat.
// DeleteProcessedEvent releases an id whose processing failed, keeping the
// provider's redelivery able to retry it.
type RepositoryAPI interface {
	InsertProcessedEvent(eventID, eventType string) (bool, error)
	DeleteProcessedEvent(eventID string) error
	PurgeProcessedBefore(cutoff time.Time) (int64, error)
}

// LedgerAPI is the slice of the payment service the reconciler drives.
type LedgerAPI interface {
	Transition(providerRef, newStatus string) (*payment.Payment, error)
	RecordFromEvent(tenantID string, intentID, sessionID *string, amount decimal.Decimal, currency, status string, customerEmail *string) (*payment.Payment, error)
}

type Service struct {
	events RepositoryAPI
	ledger LedgerAPI
	bus    *events.EventBus
}

func NewService(eventLog RepositoryAPI, ledger LedgerAPI, bus *events.EventBus) *Service {
	return &Service{
		events: eventLog,
		ledger: ledger,
		bus:    bus,
	}
}

// intentPayload is the subset of a payment_intent object the reconciler
// needs. Amounts arrive in the currency's minor unit.
type intentPayload struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// sessionPayload is the subset of a checkout.session object.
type sessionPayload struct {
	ID              string `json:"id"`
	PaymentIntent   string `json:"payment_intent"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// ProcessEvent applies one verified provider event to the ledger. It is
// idempotent: duplicate event IDs and transitions already applied both
// acknowledge cleanly so the provider stops redelivering.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) error {
	log := logger.From(ctx).With("event_id", event.ID, "event_type", string(event.Type))

	if event.ID != "" && s.events != nil {
		inserted, err := s.events.InsertProcessedEvent(event.ID, string(event.Type))
		if err != nil {
			log.Error("failed to record webhook event", "error", err)
			return apperrors.NewInternalError("failed to record webhook event", err)
		}
		if !inserted {
			log.Info("duplicate webhook event, already processed")
			return nil
		}
	}

	err := s.dispatch(ctx, event)
	if err != nil && event.ID != "" && s.events != nil {
		// the id must not stay claimed by a failed attempt, otherwise the
		// provider's retry short-circuits as a duplicate and the payment
		// never reconciles
		if delErr := s.events.DeleteProcessedEvent(event.ID); delErr != nil {
			log.Error("failed to release webhook event for retry", "error", delErr)
		}
	}
	return err
}

func (s *Service) dispatch(ctx context.Context, event stripe.Event) error {
	log := logger.From(ctx).With("event_id", event.ID, "event_type", string(event.Type))

	switch event.Type {
	case "payment_intent.succeeded":
		return s.handleIntent(ctx, event, payment.StatusCompleted)
	case "payment_intent.payment_failed":
		return s.handleIntent(ctx, event, payment.StatusFailed)
	case "payment_intent.canceled":
		return s.handleIntent(ctx, event, payment.StatusCanceled)
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return s.handleSession(ctx, event, payment.StatusCompleted)
	case "checkout.session.async_payment_failed":
		return s.handleSession(ctx, event, payment.StatusFailed)
	default:
		log.Debug("ignoring unhandled webhook event type")
		return nil
	}
}

func (s *Service) handleIntent(ctx context.Context, event stripe.Event, newStatus string) error {
	log := logger.From(ctx).With("event_id", event.ID)

	var intent intentPayload
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.Error("malformed payment_intent payload", "error", err)
		return apperrors.NewValidationError("malformed event payload", apperrors.ErrCodeValidationFailed)
	}
	if intent.ID == "" {
		log.Warn("payment_intent event without intent id, ignoring")
		return nil
	}

	p, err := s.ledger.Transition(intent.ID, newStatus)
	switch {
	case err == nil:
		s.publishOutcome(ctx, p)
		return nil
	case isNotFound(err):
		if newStatus != payment.StatusCompleted {
			// a failure for a payment we never recorded carries nothing to keep
			log.Warn("no ledger row for failed intent, acknowledging", "payment_intent_id", intent.ID)
			return nil
		}
		return s.recordFromIntent(ctx, intent, newStatus)
	case isInvalidTransition(err):
		log.Warn("transition rejected, acknowledging", "payment_intent_id", intent.ID, "new_status", newStatus, "reason", err.Error())
		return nil
	default:
		return err
	}
}

func (s *Service) handleSession(ctx context.Context, event stripe.Event, newStatus string) error {
	log := logger.From(ctx).With("event_id", event.ID)

	var session sessionPayload
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Error("malformed checkout.session payload", "error", err)
		return apperrors.NewValidationError("malformed event payload", apperrors.ErrCodeValidationFailed)
	}

	// prefer the intent reference so session and intent events land on the
	// same ledger row
	ref := session.PaymentIntent
	if ref == "" {
		ref = session.ID
	}
	if ref == "" {
		log.Warn("checkout.session event without reference, ignoring")
		return nil
	}

	p, err := s.ledger.Transition(ref, newStatus)
	switch {
	case err == nil:
		s.publishOutcome(ctx, p)
		return nil
	case isNotFound(err):
		if newStatus != payment.StatusCompleted {
			log.Warn("no ledger row for failed session, acknowledging", "checkout_session_id", session.ID)
			return nil
		}
		return s.recordFromSession(ctx, session, newStatus)
	case isInvalidTransition(err):
		log.Warn("transition rejected, acknowledging", "checkout_session_id", session.ID, "new_status", newStatus, "reason", err.Error())
		return nil
	default:
		return err
	}
}

// recordFromIntent upserts a ledger row for a successful payment the
// checkout flow never persisted, typically because the webhook raced the
// create-intent request. Tenant attribution comes from the metadata stamped
// on the intent at creation time.
func (s *Service) recordFromIntent(ctx context.Context, intent intentPayload, status string) error {
	log := logger.From(ctx)

	tenantID := intent.Metadata["tenant_id"]
	if tenantID == "" {
		log.Warn("succeeded intent without tenant attribution, acknowledging", "payment_intent_id", intent.ID)
		return nil
	}

	amount := provider.AmountFromMinor(intent.Amount, intent.Currency)

	var email *string
	if intent.ReceiptEmail != "" {
		email = &intent.ReceiptEmail
	}

	intentID := intent.ID
	p, err := s.ledger.RecordFromEvent(tenantID, &intentID, nil, amount, intent.Currency, status, email)
	if err != nil {
		return err
	}
	s.publishOutcome(ctx, p)
	return nil
}

func (s *Service) recordFromSession(ctx context.Context, session sessionPayload, status string) error {
	log := logger.From(ctx)

	tenantID := session.Metadata["tenant_id"]
	if tenantID == "" {
		log.Warn("completed session without tenant attribution, acknowledging", "checkout_session_id", session.ID)
		return nil
	}

	amount := provider.AmountFromMinor(session.AmountTotal, session.Currency)

	emailVal := session.CustomerEmail
	if emailVal == "" {
		emailVal = session.CustomerDetails.Email
	}
	var email *string
	if emailVal != "" {
		email = &emailVal
	}

	var intentID *string
	if session.PaymentIntent != "" {
		ref := session.PaymentIntent
		intentID = &ref
	}
	sessionID := session.ID

	p, err := s.ledger.RecordFromEvent(tenantID, intentID, &sessionID, amount, session.Currency, status, email)
	if err != nil {
		return err
	}
	s.publishOutcome(ctx, p)
	return nil
}

// publishOutcome notifies in-process subscribers of a settled payment.
// Delivery is best effort; the ledger row is already committed.
func (s *Service) publishOutcome(ctx context.Context, p *payment.Payment) {
	if s.bus == nil || p == nil {
		return
	}

	intentID := ""
	if p.PaymentIntentID != nil {
		intentID = *p.PaymentIntentID
	}

	switch p.Status {
	case payment.StatusCompleted:
		_ = s.bus.Publish(ctx, events.NewPaymentCompletedEvent(p.ID, p.TenantID, intentID, p.Amount.String(), p.Currency))
	case payment.StatusFailed:
		_ = s.bus.Publish(ctx, events.NewPaymentFailedEvent(p.ID, p.TenantID, intentID, "provider reported failure"))
	}
}

// PurgeProcessedEvents drops dedup records older than the retention window.
func (s *Service) PurgeProcessedEvents(retention time.Duration) (int64, error) {
	if s.events == nil {
		return 0, nil
	}
	return s.events.PurgeProcessedBefore(time.Now().Add(-retention))
}

func isNotFound(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == apperrors.ErrCodePaymentNotFound
	}
	return false
}

func isInvalidTransition(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == apperrors.ErrCodeInvalidTransition
	}
	return false
}
