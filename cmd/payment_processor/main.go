package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/membership-ledger/internal/config"
	mongodata "github.com/membership-ledger/internal/data/mongo"
	"github.com/membership-ledger/internal/data/postgres"
	"github.com/membership-ledger/internal/ledger_engine/outbox_poller"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/logger"
	"github.com/membership-ledger/internal/payment_gateway/consumer"
	"github.com/membership-ledger/internal/payment_gateway/service"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/membership-ledger/internal/platform/messaging/consumers"
	"github.com/membership-ledger/internal/platform/messaging/producers"
	"github.com/membership-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("payment_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	clk := clock.SystemClock{}

	log.Info("Starting Payment Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	settings, err := service.SettingsFromConfig(&cfg.Payments)
	if err != nil {
		log.Error("Invalid payments configuration", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	if err := mongodata.EnsureIndexes(appCtx, mongoDB.Database()); err != nil {
		log.Error("Failed to ensure MongoDB indexes", "error", err)
		os.Exit(1)
	}

	st := postgres.NewStore(log, postgresDB)
	repos := st.Repositories()
	engine := ledgerservice.NewEngine(st, clk, log.With("component", "ledger_engine"), cfg.Ledger.PageSize)

	adapter := service.NewAdapter(
		engine,
		repos.Members,
		mongodata.NewEventLogRepository(log, mongoDB.Database()),
		mongodata.NewChargeRepository(log, mongoDB.Database()),
		mongodata.NewCustomerRepository(log, mongoDB.Database()),
		settings,
		clk,
		log.With("component", "payment_adapter"),
	)

	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; keep the interface nil too
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	ledgerProducer, err := producers.NewEventProducer(log, &cfg.Kafka, cfg.Kafka.LedgerEventsTopic)
	if err != nil {
		log.Error("Failed to initialize ledger events producer", "error", err)
		os.Exit(1)
	}

	paymentEventHandler := consumer.NewPaymentEventHandler(log, adapter, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.PaymentEventsTopic)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		repos.Outbox,
		outbox_poller.NewLedgerPublisher(repos.Outbox, ledgerProducer, log),
		log,
	)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, paymentEventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if err = ledgerProducer.Close(); err != nil {
		log.Error("Error closing ledger events producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Payment Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Payment Processor shutdown completed")
}
