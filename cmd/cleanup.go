package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/hosted-checkout/internal/checkouttoken"
	checkouttokenrepo "github.com/frahmantamala/hosted-checkout/internal/checkouttoken/postgres"
	"github.com/frahmantamala/hosted-checkout/internal/webhook"
	webhookrepo "github.com/frahmantamala/hosted-checkout/internal/webhook/postgres"
	"github.com/frahmantamala/hosted-checkout/pkg/logger"
)

var webhookRetention time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired checkout tokens and old webhook dedup records",
	Long:  `Purge checkout tokens past their expiry and webhook event records past the retention window. Intended to run from cron.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
		appLogger := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		gormDB, err := initGorm(cfg.Database, db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		tokenService := checkouttoken.NewService(checkouttokenrepo.NewTokenRepository(gormDB), nil, nil, appLogger)
		purgedTokens, err := tokenService.PurgeExpired()
		if err != nil {
			log.Fatalf("failed to purge expired tokens: %v", err)
		}

		webhookService := webhook.NewService(webhookrepo.NewEventRepository(gormDB), nil, nil)
		purgedEvents, err := webhookService.PurgeProcessedEvents(webhookRetention)
		if err != nil {
			log.Fatalf("failed to purge webhook events: %v", err)
		}

		fmt.Printf("Purged %d expired tokens and %d webhook event records\n", purgedTokens, purgedEvents)
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&webhookRetention, "webhook-retention", 72*time.Hour, "how long processed webhook event ids are kept")
}
