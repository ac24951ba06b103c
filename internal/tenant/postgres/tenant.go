package postgres

import (
	"gorm.io/gorm"

	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	tenantpkg "github.com/frahmantamala/hosted-checkout/internal/tenant"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) tenantpkg.RepositoryAPI {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(t *tenant.Tenant) error {
	return r.db.Create(t).Error
}

func (r *TenantRepository) GetByID(id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetByEmail(email string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.Where("email = ?", email).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetActiveByAPIKeyPrefix(prefix string) ([]*tenant.Tenant, error) {
	var tenants []*tenant.Tenant
	err := r.db.Where("api_key_prefix = ? AND is_active = ?", prefix, true).Find(&tenants).Error
	return tenants, err
}

func (r *TenantRepository) Update(t *tenant.Tenant) error {
	return r.db.Save(t).Error
}
