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

	"github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/audit"
	"github.com/avelines/creator-ledger/internal/billing"
	billingPostgres "github.com/avelines/creator-ledger/internal/billing/postgres"
	"github.com/avelines/creator-ledger/internal/core/events"
	"github.com/avelines/creator-ledger/internal/intake"
	intakePostgres "github.com/avelines/creator-ledger/internal/intake/postgres"
	kycPostgres "github.com/avelines/creator-ledger/internal/kyc/postgres"
	"github.com/avelines/creator-ledger/internal/ledger"
	ledgerPostgres "github.com/avelines/creator-ledger/internal/ledger/postgres"
	"github.com/avelines/creator-ledger/internal/payout"
	payoutPostgres "github.com/avelines/creator-ledger/internal/payout/postgres"
	"github.com/avelines/creator-ledger/internal/transfer"
	"github.com/avelines/creator-ledger/internal/transport/rest"
	"github.com/avelines/creator-ledger/internal/wallet"
	"github.com/avelines/creator-ledger/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	GormDB      *gorm.DB
	Router      *chi.Mux
	AsynqClient *asynq.Client
	Logger      *slog.Logger
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
		if err := deps.AsynqClient.Close(); err != nil {
			slog.Error("Queue client close error", "error", err)
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

	logger.Init(os.Getenv("APP_ENV"))
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ORM: %w", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.Queue.RedisAddr,
		Password: config.Queue.RedisPassword,
		DB:       config.Queue.RedisDB,
	})

	bus := events.NewEventBus(appLogger)
	audit.NewEventHandler(appLogger).RegisterEventHandlers(bus)

	ledgerEngine := ledger.NewEngine(ledgerPostgres.NewLedgerRepository(gormDB), config.Ledger, appLogger)
	transactionRepo := billingPostgres.NewTransactionRepository(gormDB)
	processedRepo := intakePostgres.NewProcessedEventRepository(gormDB)
	payoutRepo := payoutPostgres.NewPayoutRepository(gormDB)
	kycStore := kycPostgres.NewKycStore(gormDB)

	transferClient := transfer.NewClient(config.Transfer, appLogger)
	enqueuer := payout.NewAsynqEnqueuer(asynqClient, appLogger)

	billingService := billing.NewService(transactionRepo, config.Ledger.Currency, appLogger)
	walletService := wallet.NewService(ledgerEngine, appLogger)
	intakeService := intake.NewService(gormDB, processedRepo, ledgerEngine, transactionRepo, bus, appLogger)
	payoutService := payout.NewService(gormDB, payoutRepo, ledgerEngine, kycStore, transferClient, enqueuer, config.Payout, bus, appLogger)

	billingHandler := billing.NewHandler(billingService, appLogger)
	walletHandler := wallet.NewHandler(walletService, appLogger)
	intakeHandler := intake.NewHandler(intakeService, appLogger)
	payoutHandler := payout.NewHandler(payoutService, appLogger)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, billingHandler, walletHandler, payoutHandler, intakeHandler, config.Webhook.SigningSecret, appLogger)

	return &Dependencies{
		Config:      config,
		DB:          db,
		GormDB:      gormDB,
		Router:      router,
		AsynqClient: asynqClient,
		Logger:      appLogger,
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

// initGorm wraps the already open pgx connection. TranslateError turns the
// driver's unique violations into gorm.ErrDuplicatedKey, which the intake
// pipeline relies on for idempotency.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
}
