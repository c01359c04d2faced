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
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/billing-reconciliation/internal"
	"github.com/frahmantamala/billing-reconciliation/internal/core/events"
	"github.com/frahmantamala/billing-reconciliation/internal/notification"
	"github.com/frahmantamala/billing-reconciliation/internal/paymentgateway"
	"github.com/frahmantamala/billing-reconciliation/internal/transport"
	"github.com/frahmantamala/billing-reconciliation/internal/transport/rest"
	"github.com/frahmantamala/billing-reconciliation/internal/webhook"
	webhookpostgres "github.com/frahmantamala/billing-reconciliation/internal/webhook/postgres"
	"github.com/frahmantamala/billing-reconciliation/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that receives payment gateway webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over db connection: %w", err)
	}

	// Explicit dependency injection: the gateway client and repositories are
	// constructed once here and handed to the engine, never reached through
	// package globals.
	gatewayClient := paymentgateway.NewClient(config.Stripe.APIKey, log)

	eventBus := events.NewEventBus(log)
	mailer := notification.NewSMTPMailer(config.Notification, log)
	notifier := notification.NewPaymentFailureNotifier(mailer, config.Notification.OpsEmail, log)
	notificationHandler := notification.NewEventHandler(notifier, log)
	notificationHandler.RegisterEventHandlers(eventBus)

	invoiceRepo := webhookpostgres.NewInvoiceRepository(gormDB)
	businessRepo := webhookpostgres.NewBusinessRepository(gormDB)
	payoutRepo := webhookpostgres.NewPayoutRepository(gormDB)

	resolver := webhook.NewResolver(invoiceRepo, businessRepo, log)
	webhookService := webhook.NewService(resolver, invoiceRepo, businessRepo, payoutRepo, gatewayClient, eventBus, log)
	webhookHandler := webhook.NewHandler(transport.NewBaseHandler(log), webhookService, config.Stripe)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, webhookHandler, log)

	return &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
