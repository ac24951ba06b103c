package tenant

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
)

// RepositoryAPI is the persistence contract for tenant records.
type RepositoryAPI interface {
	Create(t *tenant.Tenant) error
	GetByID(id string) (*tenant.Tenant, error)
	GetByEmail(email string) (*tenant.Tenant, error)
	GetActiveByAPIKeyPrefix(prefix string) ([]*tenant.Tenant, error)
	Update(t *tenant.Tenant) error
}

// ServiceAPI is what the rest of the system sees of the credential store.
type ServiceAPI interface {
	VerifyAPIKey(presentedKey string) (*tenant.Tenant, error)
	GetSecretKey(tenantID string) (string, error)
	GetWebhookSecret(tenantID string) (string, error)
	GetByID(tenantID string) (*tenant.Tenant, error)
}

type Service struct {
	repo       RepositoryAPI
	cipher     *SecretCipher
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, cipher *SecretCipher, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		cipher:     cipher,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// VerifyAPIKey resolves a presented bearer key to its tenant. Lookup goes
// through the indexed key prefix, then a single bcrypt comparison per
// candidate. Unknown keys yield an authentication error, inactive tenants a
// forbidden error.
func (s *Service) VerifyAPIKey(presentedKey string) (*tenant.Tenant, error) {
	prefix, ok := KeyPrefix(presentedKey)
	if !ok {
		return nil, errors.ErrInvalidAPIKey
	}

	candidates, err := s.repo.GetActiveByAPIKeyPrefix(prefix)
	if err != nil {
		s.logger.Error("api key lookup failed", "error", err)
		return nil, errors.NewInternalError("api key lookup failed", err)
	}

	for _, t := range candidates {
		if CompareAPIKey(t.APIKeyHash, presentedKey) {
			if !t.IsActive {
				return nil, errors.ErrTenantInactive
			}
			return t, nil
		}
	}

	return nil, errors.ErrInvalidAPIKey
}

// GetSecretKey returns the decrypted provider secret key for a tenant.
// Callers must not log or persist the returned value.
func (s *Service) GetSecretKey(tenantID string) (string, error) {
	t, err := s.repo.GetByID(tenantID)
	if err != nil {
		return "", errors.ErrTenantNotFound.WithCause(err)
	}
	if !t.HasSecretKey() {
		return "", errors.ErrNotConfigured
	}
	secret, err := s.cipher.Decrypt(t.SecretKeyEncrypted)
	if err != nil {
		s.logger.Error("secret key decryption failed", "tenant_id", tenantID, "error", err)
		return "", errors.NewInternalError("credential decryption failed", err)
	}
	return secret, nil
}

// GetWebhookSecret returns the decrypted webhook signing secret, or an empty
// string when the tenant never configured one.
func (s *Service) GetWebhookSecret(tenantID string) (string, error) {
	t, err := s.repo.GetByID(tenantID)
	if err != nil {
		return "", errors.ErrTenantNotFound.WithCause(err)
	}
	if !t.HasWebhookSecret() {
		return "", nil
	}
	secret, err := s.cipher.Decrypt(*t.WebhookSecretEncrypted)
	if err != nil {
		s.logger.Error("webhook secret decryption failed", "tenant_id", tenantID, "error", err)
		return "", errors.NewInternalError("credential decryption failed", err)
	}
	return secret, nil
}

func (s *Service) GetByID(tenantID string) (*tenant.Tenant, error) {
	t, err := s.repo.GetByID(tenantID)
	if err != nil {
		return nil, errors.ErrTenantNotFound.WithCause(err)
	}
	return t, nil
}

// Register creates a tenant with freshly generated API credentials and the
// provider keys encrypted at rest. The returned raw API key is shown once.
func (s *Service) Register(dto RegisterTenantDTO) (*tenant.Tenant, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, "", errors.NewConflictError("a tenant with this email already exists", errors.ErrCodeValidationFailed)
	}

	rawKey, prefix, hash, err := GenerateAPIKey(s.bcryptCost)
	if err != nil {
		return nil, "", errors.NewInternalError("api key generation failed", err)
	}

	secretEncrypted, err := s.cipher.Encrypt(dto.ProviderSecretKey)
	if err != nil {
		return nil, "", errors.NewInternalError("credential encryption failed", err)
	}

	t := &tenant.Tenant{
		ID:                 uuid.NewString(),
		Name:               dto.Name,
		Email:              dto.Email,
		APIKeyHash:         hash,
		APIKeyPrefix:       prefix,
		SecretKeyEncrypted: secretEncrypted,
		PublishableKey:     dto.ProviderPublishableKey,
		IsActive:           true,
	}

	if dto.WebhookSecret != "" {
		whEncrypted, err := s.cipher.Encrypt(dto.WebhookSecret)
		if err != nil {
			return nil, "", errors.NewInternalError("credential encryption failed", err)
		}
		t.WebhookSecretEncrypted = &whEncrypted
	}

	if err := s.repo.Create(t); err != nil {
		s.logger.Error("tenant creation failed", "email", dto.Email, "error", err)
		return nil, "", errors.NewInternalError("tenant creation failed", err)
	}

	s.logger.Info("tenant registered", "tenant_id", t.ID, "api_key_prefix", prefix)
	return t, rawKey, nil
}

// RotateAPIKey replaces the tenant's API key and returns the new raw key.
func (s *Service) RotateAPIKey(tenantID string) (string, error) {
	t, err := s.repo.GetByID(tenantID)
	if err != nil {
		return "", errors.ErrTenantNotFound.WithCause(err)
	}

	rawKey, prefix, hash, err := GenerateAPIKey(s.bcryptCost)
	if err != nil {
		return "", errors.NewInternalError("api key generation failed", err)
	}

	t.APIKeyHash = hash
	t.APIKeyPrefix = prefix
	if err := s.repo.Update(t); err != nil {
		return "", errors.NewInternalError("api key rotation failed", err)
	}

	s.logger.Info("api key rotated", "tenant_id", tenantID, "api_key_prefix", prefix)
	return rawKey, nil
}

// RotateProviderCredentials re-encrypts new provider keys for the tenant.
// Only the tenant's own credential-rotation action mutates these fields.
func (s *Service) RotateProviderCredentials(tenantID string, dto RotateCredentialsDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	t, err := s.repo.GetByID(tenantID)
	if err != nil {
		return errors.ErrTenantNotFound.WithCause(err)
	}

	if dto.ProviderSecretKey != "" {
		encrypted, err := s.cipher.Encrypt(dto.ProviderSecretKey)
		if err != nil {
			return errors.NewInternalError("credential encryption failed", err)
		}
		t.SecretKeyEncrypted = encrypted
	}
	if dto.ProviderPublishableKey != "" {
		t.PublishableKey = dto.ProviderPublishableKey
	}
	if dto.WebhookSecret != "" {
		encrypted, err := s.cipher.Encrypt(dto.WebhookSecret)
		if err != nil {
			return errors.NewInternalError("credential encryption failed", err)
		}
		t.WebhookSecretEncrypted = &encrypted
	}

	if err := s.repo.Update(t); err != nil {
		return errors.NewInternalError("credential rotation failed", err)
	}

	s.logger.Info("provider credentials rotated", "tenant_id", tenantID)
	return nil
}

// Deactivate soft-disables a tenant. Records are never deleted.
func (s *Service) Deactivate(tenantID string) error {
	t, err := s.repo.GetByID(tenantID)
	if err != nil {
		return errors.ErrTenantNotFound.WithCause(err)
	}
	now := time.Now()
	t.IsActive = false
	t.DeactivatedAt = &now
	if err := s.repo.Update(t); err != nil {
		return errors.NewInternalError("tenant deactivation failed", err)
	}
	s.logger.Info("tenant deactivated", "tenant_id", tenantID)
	return nil
}
