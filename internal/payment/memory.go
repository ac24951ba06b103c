package payment

import (
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
)

// MemoryRepository is the non-durable ledger for demo and test
// configurations. It is scoped to a single process: multiple instances
// would each hold their own table, so it must never back a multi-instance
// deployment.
type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]*payment.Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{payments: make(map[string]*payment.Payment)}
}

func (r *MemoryRepository) Create(p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.PaymentIntentID != nil {
		for _, existing := range r.payments {
			if existing.TenantID == p.TenantID &&
				existing.PaymentIntentID != nil &&
				*existing.PaymentIntentID == *p.PaymentIntentID {
				return gorm.ErrDuplicatedKey
			}
		}
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	clone := *p
	r.payments[p.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByID(tenantID, id string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *MemoryRepository) GetByTenantAndIntent(tenantID, intentID string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.TenantID == tenantID && p.PaymentIntentID != nil && *p.PaymentIntentID == intentID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryRepository) GetByProviderRef(ref string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p := r.findByRef(ref); p != nil {
		clone := *p
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryRepository) TransitionStatus(ref, newStatus string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findByRef(ref)
	if p == nil {
		return 0, nil
	}
	if p.Status != payment.StatusPending {
		return 0, nil
	}
	p.Status = newStatus
	p.UpdatedAt = time.Now()
	return 1, nil
}

func (r *MemoryRepository) List(tenantID, status string, limit, offset int) ([]*payment.Payment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit < 0 || offset < 0 {
		return nil, 0, errors.New("limit and offset must be non-negative")
	}

	var matched []*payment.Payment
	for _, p := range r.payments {
		if p.TenantID != tenantID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		clone := *p
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*payment.Payment{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// findByRef must be called with the lock held.
func (r *MemoryRepository) findByRef(ref string) *payment.Payment {
	for _, p := range r.payments {
		if p.PaymentIntentID != nil && *p.PaymentIntentID == ref {
			return p
		}
		if p.CheckoutSessionID != nil && *p.CheckoutSessionID == ref {
			return p
		}
	}
	return nil
}
