package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/hosted-checkout/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *payment.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(tenantID, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByTenantAndIntent(tenantID, intentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("tenant_id = ? AND payment_intent_id = ?", tenantID, intentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByProviderRef(ref string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("payment_intent_id = ? OR checkout_session_id = ?", ref, ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// TransitionStatus is the single authoritative write per transition: the
// WHERE clause only matches rows still pending, so two racing transitions
// cannot both apply.
func (r *PaymentRepository) TransitionStatus(ref, newStatus string) (int64, error) {
	res := r.db.Model(&payment.Payment{}).
		Where("(payment_intent_id = ? OR checkout_session_id = ?) AND status = ?", ref, ref, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *PaymentRepository) List(tenantID, status string, limit, offset int) ([]*payment.Payment, int64, error) {
	query := r.db.Model(&payment.Payment{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []*payment.Payment
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&payments).Error
	return payments, total, err
}
