package tenant

import (
	"strings"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/common/validation"
)

// RegisterTenantDTO is the payload for creating a tenant account.
type RegisterTenantDTO struct {
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	ProviderSecretKey      string `json:"provider_secret_key"`
	ProviderPublishableKey string `json:"provider_publishable_key"`
	WebhookSecret          string `json:"webhook_secret,omitempty"`
}

func (dto *RegisterTenantDTO) Validate() error {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	dto.Name = strings.TrimSpace(dto.Name)

	validator := validation.NewValidator()
	validator.Field("name", dto.Name).Required().MaxLength(200)
	validator.Field("email", dto.Email).Required().MaxLength(320)
	validator.Field("provider_secret_key", dto.ProviderSecretKey).Required()
	validator.Field("provider_publishable_key", dto.ProviderPublishableKey).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	if !strings.Contains(dto.Email, "@") {
		return errors.NewValidationFieldError("email", "email is not valid", errors.ErrCodeValidationFailed)
	}
	return nil
}

// RotateCredentialsDTO carries replacement provider keys. All fields are
// optional but at least one must be set.
type RotateCredentialsDTO struct {
	ProviderSecretKey      string `json:"provider_secret_key,omitempty"`
	ProviderPublishableKey string `json:"provider_publishable_key,omitempty"`
	WebhookSecret          string `json:"webhook_secret,omitempty"`
}

func (dto *RotateCredentialsDTO) Validate() error {
	if dto.ProviderSecretKey == "" && dto.ProviderPublishableKey == "" && dto.WebhookSecret == "" {
		return errors.NewValidationError("at least one credential must be provided", errors.ErrCodeValidationFailed)
	}
	return nil
}

// RegisterTenantResponse returns the raw API key exactly once.
type RegisterTenantResponse struct {
	TenantID     string `json:"tenant_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	APIKey       string `json:"api_key"`
	APIKeyPrefix string `json:"api_key_prefix"`
}

type RotateAPIKeyResponse struct {
	APIKey       string `json:"api_key"`
	APIKeyPrefix string `json:"api_key_prefix"`
}
