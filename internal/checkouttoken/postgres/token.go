package postgres

import (
	"time"

	"gorm.io/gorm"

	checkouttokenpkg "github.com/frahmantamala/hosted-checkout/internal/checkouttoken"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/checkouttoken"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) checkouttokenpkg.RepositoryAPI {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(t *checkouttoken.CheckoutToken) error {
	return r.db.Create(t).Error
}

func (r *TokenRepository) GetByToken(token string) (*checkouttoken.CheckoutToken, error) {
	var t checkouttoken.CheckoutToken
	err := r.db.Where("token = ?", token).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) MarkAllUsedForTenant(tenantID string) (int64, error) {
	res := r.db.Model(&checkouttoken.CheckoutToken{}).
		Where("tenant_id = ? AND used = ?", tenantID, false).
		Update("used", true)
	return res.RowsAffected, res.Error
}

func (r *TokenRepository) DeleteExpired(before time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", before).Delete(&checkouttoken.CheckoutToken{})
	return res.RowsAffected, res.Error
}
