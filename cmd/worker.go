package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/avelines/creator-ledger/internal/audit"
	"github.com/avelines/creator-ledger/internal/core/events"
	kycPostgres "github.com/avelines/creator-ledger/internal/kyc/postgres"
	"github.com/avelines/creator-ledger/internal/ledger"
	ledgerPostgres "github.com/avelines/creator-ledger/internal/ledger/postgres"
	"github.com/avelines/creator-ledger/internal/payout"
	payoutPostgres "github.com/avelines/creator-ledger/internal/payout/postgres"
	"github.com/avelines/creator-ledger/internal/transfer"
	"github.com/avelines/creator-ledger/pkg/logger"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start payout worker",
	Long:  `Start the queue worker that executes scheduled payouts and periodic clearance sweeps`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

const clearanceSweepSchedule = "@every 1h"

func startWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize ORM: %v\n", err)
		os.Exit(1)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     config.Queue.RedisAddr,
		Password: config.Queue.RedisPassword,
		DB:       config.Queue.RedisDB,
	}
	asynqClient := asynq.NewClient(redisOpt)

	bus := events.NewEventBus(appLogger)
	audit.NewEventHandler(appLogger).RegisterEventHandlers(bus)

	ledgerEngine := ledger.NewEngine(ledgerPostgres.NewLedgerRepository(gormDB), config.Ledger, appLogger)
	payoutRepo := payoutPostgres.NewPayoutRepository(gormDB)
	kycStore := kycPostgres.NewKycStore(gormDB)
	transferClient := transfer.NewClient(config.Transfer, appLogger)
	enqueuer := payout.NewAsynqEnqueuer(asynqClient, appLogger)

	payoutService := payout.NewService(gormDB, payoutRepo, ledgerEngine, kycStore, transferClient, enqueuer, config.Payout, bus, appLogger)
	taskHandler := payout.NewTaskHandler(payoutService, appLogger)

	concurrency := config.Queue.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Logger:      asynqLogger{appLogger},
	})

	mux := asynq.NewServeMux()
	taskHandler.Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register(clearanceSweepSchedule, payout.NewClearanceSweepTask()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register clearance sweep: %v\n", err)
		os.Exit(1)
	}

	slog.Info("Starting worker", "concurrency", concurrency, "redis", config.Queue.RedisAddr)

	if err := scheduler.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
		os.Exit(1)
	}
	if err := srv.Start(mux); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start worker: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received signal, shutting down worker...", "signal", sig)

	scheduler.Shutdown()
	srv.Shutdown()
	if err := asynqClient.Close(); err != nil {
		slog.Error("Queue client close error", "error", err)
	}
	if err := db.Close(); err != nil {
		slog.Error("Database close error", "error", err)
	}

	slog.Info("Worker stopped")
}

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
