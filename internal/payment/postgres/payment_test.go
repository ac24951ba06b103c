package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/hosted-checkout/internal/payment"
)

func TestPaymentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Repository Suite")
}

// PaymentSQLite mirrors the ledger row with text columns in place of the
// postgres-only types so the schema migrates on SQLite.
type PaymentSQLite struct {
	ID                string    `gorm:"primaryKey"`
	TenantID          string    `gorm:"column:tenant_id;not null"`
	PaymentIntentID   *string   `gorm:"column:payment_intent_id;index"`
	CheckoutSessionID *string   `gorm:"column:checkout_session_id;index"`
	Amount            string    `gorm:"column:amount;type:text;not null"`
	Currency          string    `gorm:"column:currency;not null"`
	Status            string    `gorm:"column:status;default:pending"`
	CustomerEmail     *string   `gorm:"column:customer_email"`
	Metadata          string    `gorm:"column:metadata;type:text"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (PaymentSQLite) TableName() string {
	return "payments"
}

func strPtr(s string) *string { return &s }

var _ = ginkgo.Describe("PaymentRepository", func() {
	var (
		db   *gorm.DB
		repo paymentpkg.RepositoryAPI
	)

	newRow := func(id, tenantID string, intentID *string, status string) *payment.Payment {
		return &payment.Payment{
			ID:              id,
			TenantID:        tenantID,
			PaymentIntentID: intentID,
			Amount:          decimal.NewFromFloat(19.99),
			Currency:        "usd",
			Status:          status,
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}
	}

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&PaymentSQLite{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewPaymentRepository(db)
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should insert a ledger row", func() {
			row := newRow("pay-1", "tenant-1", strPtr("pi_1"), payment.StatusPending)

			err := repo.Create(row)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, err := repo.GetByID("tenant-1", "pay-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(payment.StatusPending))
			gomega.Expect(stored.Amount.Equal(decimal.NewFromFloat(19.99))).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("GetByProviderRef", func() {
		ginkgo.BeforeEach(func() {
			intentRow := newRow("pay-1", "tenant-1", strPtr("pi_1"), payment.StatusPending)
			sessionRow := newRow("pay-2", "tenant-1", nil, payment.StatusPending)
			sessionRow.CheckoutSessionID = strPtr("cs_2")

			gomega.Expect(repo.Create(intentRow)).To(gomega.Succeed())
			gomega.Expect(repo.Create(sessionRow)).To(gomega.Succeed())
		})

		ginkgo.It("should find a row by payment intent id", func() {
			result, err := repo.GetByProviderRef("pi_1")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.ID).To(gomega.Equal("pay-1"))
		})

		ginkgo.It("should find a row by checkout session id", func() {
			result, err := repo.GetByProviderRef("cs_2")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.ID).To(gomega.Equal("pay-2"))
		})

		ginkgo.It("should return error for an unknown reference", func() {
			result, err := repo.GetByProviderRef("pi_unknown")

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(result).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("GetByTenantAndIntent", func() {
		ginkgo.BeforeEach(func() {
			gomega.Expect(repo.Create(newRow("pay-1", "tenant-1", strPtr("pi_1"), payment.StatusPending))).To(gomega.Succeed())
		})

		ginkgo.It("should scope the lookup to the tenant", func() {
			result, err := repo.GetByTenantAndIntent("tenant-1", "pi_1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.ID).To(gomega.Equal("pay-1"))

			_, err = repo.GetByTenantAndIntent("tenant-2", "pi_1")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("TransitionStatus", func() {
		ginkgo.BeforeEach(func() {
			gomega.Expect(repo.Create(newRow("pay-1", "tenant-1", strPtr("pi_1"), payment.StatusPending))).To(gomega.Succeed())
		})

		ginkgo.It("should move a pending row and report one affected row", func() {
			affected, err := repo.TransitionStatus("pi_1", payment.StatusCompleted)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.Equal(int64(1)))

			stored, err := repo.GetByProviderRef("pi_1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(payment.StatusCompleted))
		})

		ginkgo.It("should not overwrite a terminal row", func() {
			_, err := repo.TransitionStatus("pi_1", payment.StatusCompleted)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			affected, err := repo.TransitionStatus("pi_1", payment.StatusFailed)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.Equal(int64(0)))

			stored, err := repo.GetByProviderRef("pi_1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Status).To(gomega.Equal(payment.StatusCompleted))
		})

		ginkgo.It("should report zero affected rows for an unknown reference", func() {
			affected, err := repo.TransitionStatus("pi_unknown", payment.StatusCompleted)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(affected).To(gomega.Equal(int64(0)))
		})
	})

	ginkgo.Describe("List", func() {
		ginkgo.BeforeEach(func() {
			rows := []*payment.Payment{
				newRow("pay-1", "tenant-1", strPtr("pi_1"), payment.StatusCompleted),
				newRow("pay-2", "tenant-1", strPtr("pi_2"), payment.StatusPending),
				newRow("pay-3", "tenant-2", strPtr("pi_3"), payment.StatusPending),
			}
			rows[0].CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
			rows[1].CreatedAt = time.Now().UTC().Add(-1 * time.Hour)

			for _, row := range rows {
				gomega.Expect(repo.Create(row)).To(gomega.Succeed())
			}
		})

		ginkgo.It("should return the tenant's rows newest first with a total", func() {
			results, total, err := repo.List("tenant-1", "", 10, 0)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(total).To(gomega.Equal(int64(2)))
			gomega.Expect(results).To(gomega.HaveLen(2))
			gomega.Expect(results[0].ID).To(gomega.Equal("pay-2"))
			gomega.Expect(results[1].ID).To(gomega.Equal("pay-1"))
		})

		ginkgo.It("should filter by status", func() {
			results, total, err := repo.List("tenant-1", payment.StatusPending, 10, 0)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(total).To(gomega.Equal(int64(1)))
			gomega.Expect(results).To(gomega.HaveLen(1))
			gomega.Expect(results[0].ID).To(gomega.Equal("pay-2"))
		})

		ginkgo.It("should return an empty page past the end", func() {
			results, total, err := repo.List("tenant-1", "", 10, 5)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(total).To(gomega.Equal(int64(2)))
			gomega.Expect(results).To(gomega.BeEmpty())
		})
	})
})
