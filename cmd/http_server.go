package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/hosted-checkout/internal"
	"github.com/frahmantamala/hosted-checkout/internal/checkout"
	"github.com/frahmantamala/hosted-checkout/internal/checkouttoken"
	checkouttokenrepo "github.com/frahmantamala/hosted-checkout/internal/checkouttoken/postgres"
	"github.com/frahmantamala/hosted-checkout/internal/core/events"
	"github.com/frahmantamala/hosted-checkout/internal/payment"
	paymentrepo "github.com/frahmantamala/hosted-checkout/internal/payment/postgres"
	"github.com/frahmantamala/hosted-checkout/internal/provider"
	"github.com/frahmantamala/hosted-checkout/internal/tenant"
	tenantrepo "github.com/frahmantamala/hosted-checkout/internal/tenant/postgres"
	"github.com/frahmantamala/hosted-checkout/internal/transport"
	"github.com/frahmantamala/hosted-checkout/internal/transport/rest"
	"github.com/frahmantamala/hosted-checkout/internal/webhook"
	webhookrepo "github.com/frahmantamala/hosted-checkout/internal/webhook/postgres"
	"github.com/frahmantamala/hosted-checkout/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle merchant API and checkout requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger

	TenantService *tenant.Service
	TokenService  *checkouttoken.Service

	TenantHandler   *tenant.Handler
	CheckoutHandler *checkout.Handler
	PaymentHandler  *payment.Handler
	WebhookHandler  *webhook.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.TenantHandler,
		deps.CheckoutHandler,
		deps.PaymentHandler,
		deps.WebhookHandler,
		deps.TenantService,
		deps.Logger,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(config.Database, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	encryptionKey, err := config.Security.GetEncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	cipher, err := tenant.NewSecretCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build secret cipher: %w", err)
	}

	bus := events.NewEventBus(appLogger)
	subscribePaymentEvents(bus, appLogger)

	providerClient := provider.NewClient(config.Provider.Timeout, appLogger)

	tenantService := tenant.NewService(tenantrepo.NewTenantRepository(gormDB), cipher, config.Security.BCryptCost, appLogger)
	paymentService := payment.NewService(paymentrepo.NewPaymentRepository(gormDB), appLogger)
	tokenService := checkouttoken.NewService(checkouttokenrepo.NewTokenRepository(gormDB), tenantService, providerClient, appLogger)
	tokenService.TTL = config.Security.TokenTTL
	checkoutService := checkout.NewService(tenantService, providerClient, tokenService, paymentService, config.Server.BaseURL, appLogger)
	webhookService := webhook.NewService(webhookrepo.NewEventRepository(gormDB), paymentService, bus)

	base := transport.NewBaseHandler(appLogger)

	return &Dependencies{
		Config: config,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
		Logger: appLogger,

		TenantService: tenantService,
		TokenService:  tokenService,

		TenantHandler:   tenant.NewHandler(base, tenantService, tokenService, appLogger),
		CheckoutHandler: checkout.NewHandler(base, checkoutService, tokenService, appLogger),
		PaymentHandler:  payment.NewHandler(base, paymentService, appLogger),
		WebhookHandler: webhook.NewHandler(
			base,
			webhookService,
			webhook.ProviderVerifier{},
			tenantService,
			config.Provider.WebhookSecret,
			config.Provider.DevModeInsecureWebhooks,
		),
	}, nil
}

// subscribePaymentEvents attaches the in-process consumers of settled
// payments. Today that is an audit log line; merchant notification hooks
// would subscribe here.
func subscribePaymentEvents(bus *events.EventBus, log *slog.Logger) {
	bus.Subscribe(events.EventTypePaymentCompleted, func(ctx context.Context, event events.Event) error {
		log.Info("payment completed", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, event events.Event) error {
		log.Warn("payment failed", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})
}

// initDB opens the plain sql connection used for health checks and
// migrations.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	driver := "pgx"
	if cfg.Driver == "sqlite" {
		driver = "sqlite3"
	}

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm opens the ORM connection the repositories use. TranslateError
// turns driver-specific unique violations into gorm.ErrDuplicatedKey, which
// the ledger's duplicate detection depends on.
func initGorm(cfg internal.DatabaseConfig, db *sqlx.DB) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}

	switch cfg.Driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.Source), gormCfg)
	default:
		return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), gormCfg)
	}
}
