package payment

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
)

// RepositoryAPI is the persistence contract for the ledger. TransitionStatus
// must be a single guarded write (UPDATE ... WHERE status = 'pending') so
// concurrent transitions on the same row cannot both win.
type RepositoryAPI interface {
	Create(p *payment.Payment) error
	GetByID(tenantID, id string) (*payment.Payment, error)
	GetByTenantAndIntent(tenantID, intentID string) (*payment.Payment, error)
	GetByProviderRef(ref string) (*payment.Payment, error)
	TransitionStatus(ref, newStatus string) (int64, error)
	List(tenantID, status string, limit, offset int) ([]*payment.Payment, int64, error)
}

// ServiceAPI is the ledger surface consumed by the orchestrator, the
// webhook reconciler, and the HTTP handlers.
type ServiceAPI interface {
	CreatePending(tenantID, intentID string, amount decimal.Decimal, currency string, customerEmail *string, metadata map[string]interface{}) (*payment.Payment, error)
	Transition(providerRef, newStatus string) (*payment.Payment, error)
	RecordFromEvent(tenantID string, intentID, sessionID *string, amount decimal.Decimal, currency, status string, customerEmail *string) (*payment.Payment, error)
	Get(tenantID, paymentID string) (*payment.Payment, error)
	List(tenantID, status string, limit, offset int) ([]*payment.Payment, int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreatePending inserts the ledger row for a freshly created payment
// intent. Exactly one row may exist per (tenant, intent); a duplicate is a
// Conflict the caller treats as already-recorded, not a failure.
func (s *Service) CreatePending(tenantID, intentID string, amount decimal.Decimal, currency string, customerEmail *string, metadata map[string]interface{}) (*payment.Payment, error) {
	if existing, err := s.repo.GetByTenantAndIntent(tenantID, intentID); err == nil && existing != nil {
		return existing, errors.ErrDuplicatePayment
	}

	var metadataJSON json.RawMessage
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, errors.NewInternalError("metadata encoding failed", err)
		}
		metadataJSON = raw
	}

	p := &payment.Payment{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		PaymentIntentID: &intentID,
		Amount:          amount,
		Currency:        currency,
		Status:          payment.StatusPending,
		CustomerEmail:   customerEmail,
		Metadata:        metadataJSON,
	}

	if err := s.repo.Create(p); err != nil {
		if isDuplicateErr(err) {
			return nil, errors.ErrDuplicatePayment
		}
		s.logger.Error("ledger insert failed", "tenant_id", tenantID, "payment_intent_id", intentID, "error", err)
		return nil, errors.NewInternalError("ledger insert failed", err)
	}

	s.logger.Info("payment recorded",
		"payment_id", p.ID,
		"tenant_id", tenantID,
		"payment_intent_id", intentID,
		"status", p.Status)
	return p, nil
}

// Transition applies one status change keyed by a provider reference
// (payment intent or checkout session id). Allowed: pending -> completed /
// failed / canceled. Replaying the same terminal status is a no-op; every
// other move out of a terminal state is rejected as an invalid transition.
func (s *Service) Transition(providerRef, newStatus string) (*payment.Payment, error) {
	if !payment.ValidStatus(newStatus) || newStatus == payment.StatusPending {
		return nil, errors.NewTransitionError("unknown target status " + newStatus)
	}

	p, err := s.repo.GetByProviderRef(providerRef)
	if err != nil {
		return nil, errors.ErrPaymentNotFound.WithCause(err)
	}

	if p.Status == newStatus {
		// duplicate delivery of the same event; ledger already converged
		return p, nil
	}
	if payment.IsTerminal(p.Status) {
		s.logger.Warn("status transition rejected",
			"payment_id", p.ID,
			"current_status", p.Status,
			"requested_status", newStatus)
		return nil, errors.NewTransitionError("cannot move payment from " + p.Status + " to " + newStatus)
	}

	rows, err := s.repo.TransitionStatus(providerRef, newStatus)
	if err != nil {
		s.logger.Error("status transition write failed", "payment_id", p.ID, "error", err)
		return nil, errors.NewInternalError("ledger update failed", err)
	}
	if rows == 0 {
		// lost a race to a concurrent transition; re-read and re-judge
		current, err := s.repo.GetByProviderRef(providerRef)
		if err != nil {
			return nil, errors.ErrPaymentNotFound.WithCause(err)
		}
		if current.Status == newStatus {
			return current, nil
		}
		return nil, errors.NewTransitionError("cannot move payment from " + current.Status + " to " + newStatus)
	}

	p.Status = newStatus
	s.logger.Info("payment status updated",
		"payment_id", p.ID,
		"tenant_id", p.TenantID,
		"status", newStatus)
	return p, nil
}

// RecordFromEvent creates a ledger row directly from a webhook payload when
// the synchronous create-intent write lost the race. Used by the reconciler
// to upsert "succeeded" events for intents it has never seen.
func (s *Service) RecordFromEvent(tenantID string, intentID, sessionID *string, amount decimal.Decimal, currency, status string, customerEmail *string) (*payment.Payment, error) {
	if !payment.ValidStatus(status) {
		return nil, errors.NewTransitionError("unknown status " + status)
	}

	p := &payment.Payment{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		PaymentIntentID:   intentID,
		CheckoutSessionID: sessionID,
		Amount:            amount,
		Currency:          currency,
		Status:            status,
		CustomerEmail:     customerEmail,
	}

	if err := s.repo.Create(p); err != nil {
		if isDuplicateErr(err) {
			// the synchronous path won after all; fall through to a transition
			return s.Transition(refOf(intentID, sessionID), status)
		}
		return nil, errors.NewInternalError("ledger insert failed", err)
	}

	s.logger.Info("payment recorded from provider event",
		"payment_id", p.ID,
		"tenant_id", tenantID,
		"status", status)
	return p, nil
}

func (s *Service) Get(tenantID, paymentID string) (*payment.Payment, error) {
	p, err := s.repo.GetByID(tenantID, paymentID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound.WithCause(err)
	}
	return p, nil
}

func (s *Service) List(tenantID, status string, limit, offset int) ([]*payment.Payment, int64, error) {
	if status != "" && !payment.ValidStatus(status) {
		return nil, 0, errors.NewValidationError("unknown status filter "+status, errors.ErrCodeValidationFailed)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.List(tenantID, status, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternalError("ledger query failed", err)
	}
	return items, total, nil
}

func refOf(intentID, sessionID *string) string {
	if intentID != nil && *intentID != "" {
		return *intentID
	}
	if sessionID != nil {
		return *sessionID
	}
	return ""
}
