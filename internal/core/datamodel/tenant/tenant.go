package tenant

import (
	"time"
)

// Tenant is a store/merchant account that owns checkout credentials and
// receives payments. Provider secrets are stored encrypted; the raw API key
// is never stored, only its bcrypt hash plus a non-secret lookup prefix.
type Tenant struct {
	ID                    string     `gorm:"primaryKey;type:uuid" json:"id"`
	Name                  string     `gorm:"column:name;not null" json:"name"`
	Email                 string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	APIKeyHash            string     `gorm:"column:api_key_hash;not null" json:"-"`
	APIKeyPrefix          string     `gorm:"column:api_key_prefix;not null;index" json:"api_key_prefix"`
	SecretKeyEncrypted    string     `gorm:"column:secret_key_encrypted" json:"-"`
	PublishableKey        string     `gorm:"column:publishable_key" json:"publishable_key"`
	WebhookSecretEncrypted *string   `gorm:"column:webhook_secret_encrypted" json:"-"`
	IsActive              bool       `gorm:"column:is_active;default:true" json:"is_active"`
	DeactivatedAt         *time.Time `gorm:"column:deactivated_at" json:"-"`
	CreatedAt             time.Time  `gorm:"column:created_at;default:now()" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;default:now()" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) HasSecretKey() bool {
	return t.SecretKeyEncrypted != ""
}

func (t *Tenant) HasWebhookSecret() bool {
	return t.WebhookSecretEncrypted != nil && *t.WebhookSecretEncrypted != ""
}
