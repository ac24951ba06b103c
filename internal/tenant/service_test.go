package tenant_test

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/hosted-checkout/internal"
	tenantmodel "github.com/frahmantamala/hosted-checkout/internal/core/datamodel/tenant"
	tenantPkg "github.com/frahmantamala/hosted-checkout/internal/tenant"
)

func TestTenant(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tenant Suite")
}

// Mock repository for testing
type mockTenantRepository struct {
	tenants     map[string]*tenantmodel.Tenant
	createError error
	getError    error
	updateError error
}

func newMockTenantRepository() *mockTenantRepository {
	return &mockTenantRepository{tenants: make(map[string]*tenantmodel.Tenant)}
}

func (m *mockTenantRepository) Create(t *tenantmodel.Tenant) error {
	if m.createError != nil {
		return m.createError
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *mockTenantRepository) GetByID(id string) (*tenantmodel.Tenant, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	t, ok := m.tenants[id]
	if !ok {
		return nil, errors.New("tenant not found")
	}
	return t, nil
}

func (m *mockTenantRepository) GetByEmail(email string) (*tenantmodel.Tenant, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, t := range m.tenants {
		if t.Email == email {
			return t, nil
		}
	}
	return nil, errors.New("tenant not found")
}

func (m *mockTenantRepository) GetActiveByAPIKeyPrefix(prefix string) ([]*tenantmodel.Tenant, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var out []*tenantmodel.Tenant
	for _, t := range m.tenants {
		if t.APIKeyPrefix == prefix && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTenantRepository) Update(t *tenantmodel.Tenant) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.tenants[t.ID] = t
	return nil
}

func testCipher() *tenantPkg.SecretCipher {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	Expect(err).ToNot(HaveOccurred())
	cipher, err := tenantPkg.NewSecretCipher(key)
	Expect(err).ToNot(HaveOccurred())
	return cipher
}

var _ = Describe("TenantService", func() {
	var (
		service  *tenantPkg.Service
		mockRepo *mockTenantRepository
		logger   *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = newMockTenantRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		// low cost keeps the bcrypt comparisons fast in tests
		service = tenantPkg.NewService(mockRepo, testCipher(), 4, logger)
	})

	Describe("Register", func() {
		Context("when the payload is valid", func() {
			It("should create the tenant and return the raw key once", func() {
				created, rawKey, err := service.Register(tenantPkg.RegisterTenantDTO{
					Name:                   "Acme Store",
					Email:                  "owner@acme.test",
					ProviderSecretKey:      "sk_test_abc123",
					ProviderPublishableKey: "pk_test_abc123",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(created).ToNot(BeNil())
				Expect(rawKey).To(HavePrefix("pk_live_"))
				Expect(rawKey).To(HaveLen(len("pk_live_") + 64))
				Expect(created.APIKeyPrefix).To(Equal(rawKey[:16]))

				// only the hash and ciphertext are stored
				stored := mockRepo.tenants[created.ID]
				Expect(stored.APIKeyHash).ToNot(ContainSubstring(rawKey))
				Expect(stored.SecretKeyEncrypted).ToNot(ContainSubstring("sk_test_abc123"))
			})
		})

		Context("when the email is already registered", func() {
			It("should return a conflict", func() {
				_, _, err := service.Register(tenantPkg.RegisterTenantDTO{
					Name:                   "First",
					Email:                  "dup@acme.test",
					ProviderSecretKey:      "sk_test_1",
					ProviderPublishableKey: "pk_test_1",
				})
				Expect(err).ToNot(HaveOccurred())

				_, _, err = service.Register(tenantPkg.RegisterTenantDTO{
					Name:                   "Second",
					Email:                  "dup@acme.test",
					ProviderSecretKey:      "sk_test_2",
					ProviderPublishableKey: "pk_test_2",
				})
				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeConflict))
			})
		})

		Context("when required fields are missing", func() {
			It("should fail validation", func() {
				_, _, err := service.Register(tenantPkg.RegisterTenantDTO{Email: "no-name@acme.test"})
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("VerifyAPIKey", func() {
		var rawKey string
		var tenantID string

		BeforeEach(func() {
			created, key, err := service.Register(tenantPkg.RegisterTenantDTO{
				Name:                   "Keyed Store",
				Email:                  "keys@acme.test",
				ProviderSecretKey:      "sk_test_key",
				ProviderPublishableKey: "pk_test_key",
			})
			Expect(err).ToNot(HaveOccurred())
			rawKey = key
			tenantID = created.ID
		})

		Context("when the key is valid", func() {
			It("should resolve the owning tenant", func() {
				t, err := service.VerifyAPIKey(rawKey)
				Expect(err).ToNot(HaveOccurred())
				Expect(t.ID).To(Equal(tenantID))
			})
		})

		Context("when the key is unknown", func() {
			It("should return an authentication error", func() {
				_, err := service.VerifyAPIKey("pk_live_0000000000000000000000000000000000000000000000000000000000000000")
				Expect(err).To(Equal(apperrors.ErrInvalidAPIKey))
			})
		})

		Context("when the key is malformed", func() {
			It("should return an authentication error", func() {
				_, err := service.VerifyAPIKey("not-a-key")
				Expect(err).To(Equal(apperrors.ErrInvalidAPIKey))
			})
		})

		Context("when the key was rotated", func() {
			It("should reject the old key and accept the new one", func() {
				newKey, err := service.RotateAPIKey(tenantID)
				Expect(err).ToNot(HaveOccurred())
				Expect(newKey).ToNot(Equal(rawKey))

				_, err = service.VerifyAPIKey(rawKey)
				Expect(err).To(Equal(apperrors.ErrInvalidAPIKey))

				t, err := service.VerifyAPIKey(newKey)
				Expect(err).ToNot(HaveOccurred())
				Expect(t.ID).To(Equal(tenantID))
			})
		})

		Context("when the tenant was deactivated", func() {
			It("should reject the key", func() {
				Expect(service.Deactivate(tenantID)).To(Succeed())

				_, err := service.VerifyAPIKey(rawKey)
				Expect(err).To(Equal(apperrors.ErrInvalidAPIKey))
			})
		})
	})

	Describe("GetSecretKey", func() {
		It("should round-trip the stored provider secret", func() {
			created, _, err := service.Register(tenantPkg.RegisterTenantDTO{
				Name:                   "Secret Store",
				Email:                  "secret@acme.test",
				ProviderSecretKey:      "sk_test_roundtrip",
				ProviderPublishableKey: "pk_test_roundtrip",
			})
			Expect(err).ToNot(HaveOccurred())

			secret, err := service.GetSecretKey(created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(secret).To(Equal("sk_test_roundtrip"))
		})

		It("should return not-configured when the tenant has no secret", func() {
			bare := &tenantmodel.Tenant{ID: "bare-tenant", Name: "Bare", IsActive: true}
			mockRepo.tenants[bare.ID] = bare

			_, err := service.GetSecretKey(bare.ID)
			Expect(err).To(Equal(apperrors.ErrNotConfigured))
		})
	})

	Describe("GetWebhookSecret", func() {
		It("should return empty when no webhook secret was configured", func() {
			created, _, err := service.Register(tenantPkg.RegisterTenantDTO{
				Name:                   "No Hooks",
				Email:                  "nohooks@acme.test",
				ProviderSecretKey:      "sk_test_x",
				ProviderPublishableKey: "pk_test_x",
			})
			Expect(err).ToNot(HaveOccurred())

			secret, err := service.GetWebhookSecret(created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(secret).To(BeEmpty())
		})

		It("should round-trip a configured webhook secret", func() {
			created, _, err := service.Register(tenantPkg.RegisterTenantDTO{
				Name:                   "Hooked",
				Email:                  "hooked@acme.test",
				ProviderSecretKey:      "sk_test_x",
				ProviderPublishableKey: "pk_test_x",
				WebhookSecret:          "whsec_abc",
			})
			Expect(err).ToNot(HaveOccurred())

			secret, err := service.GetWebhookSecret(created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(secret).To(Equal("whsec_abc"))
		})
	})

	Describe("RotateProviderCredentials", func() {
		It("should replace the stored secret", func() {
			created, _, err := service.Register(tenantPkg.RegisterTenantDTO{
				Name:                   "Rotator",
				Email:                  "rotate@acme.test",
				ProviderSecretKey:      "sk_test_old",
				ProviderPublishableKey: "pk_test_old",
			})
			Expect(err).ToNot(HaveOccurred())

			err = service.RotateProviderCredentials(created.ID, tenantPkg.RotateCredentialsDTO{
				ProviderSecretKey: "sk_test_new",
			})
			Expect(err).ToNot(HaveOccurred())

			secret, err := service.GetSecretKey(created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(secret).To(Equal("sk_test_new"))
		})

		It("should reject an empty rotation", func() {
			err := service.RotateProviderCredentials("whatever", tenantPkg.RotateCredentialsDTO{})
			Expect(err).To(HaveOccurred())
		})
	})
})
