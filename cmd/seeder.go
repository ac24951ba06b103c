package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/hosted-checkout/internal/tenant"
	tenantrepo "github.com/frahmantamala/hosted-checkout/internal/tenant/postgres"
	"github.com/frahmantamala/hosted-checkout/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo tenant",
	Long:  `Seed the database with a demo tenant for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		gormDB, err := initGorm(cfg.Database, db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"payments", "checkout_tokens", "webhook_events", "tenants"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		key, err := cfg.Security.GetEncryptionKey()
		if err != nil {
			log.Fatalf("invalid encryption key: %v", err)
		}
		cipher, err := tenant.NewSecretCipher(key)
		if err != nil {
			log.Fatalf("failed to build secret cipher: %v", err)
		}

		repo := tenantrepo.NewTenantRepository(gormDB)
		svc := tenant.NewService(repo, cipher, cfg.Security.BCryptCost, logger.LoggerWrapper())

		demoEmail := "demo@store.test"
		if existing, err := repo.GetByEmail(demoEmail); err == nil && existing != nil {
			fmt.Println("demo tenant already exists:", demoEmail)
			return
		}

		seeded, rawKey, err := svc.Register(tenant.RegisterTenantDTO{
			Name:                   "Demo Store",
			Email:                  demoEmail,
			ProviderSecretKey:      "sk_test_demo_secret",
			ProviderPublishableKey: "pk_test_demo_publishable",
		})
		if err != nil {
			log.Fatalf("failed to seed demo tenant: %v", err)
		}

		fmt.Println("Seeded demo tenant:", demoEmail)
		fmt.Println("Tenant ID:", seeded.ID)
		// shown exactly once; only the hash is stored
		fmt.Println("API key:", rawKey)
	},
}
