package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/membership-ledger/internal/api_gateway"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/config"
	"github.com/membership-ledger/internal/data/postgres"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/logger"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/membership-ledger/internal/platform/messaging/producers"
	"github.com/membership-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	clk := clock.SystemClock{}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Verified webhooks are queued on the payment events topic and applied by the payment processor
	webhookProducer, err := producers.NewEventProducer(log, &cfg.Kafka, cfg.Kafka.PaymentEventsTopic)
	if err != nil {
		log.Error("Failed to initialize payment events producer", "error", err)
		os.Exit(1)
	}

	st := postgres.NewStore(log, postgresDB)
	engine := ledgerservice.NewEngine(st, clk, log.With("component", "ledger_engine"), cfg.Ledger.PageSize)
	repos := st.Repositories()

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Accounts: service.NewAccountService(repos.Accounts, engine, clk),
		Entries:  service.NewEntryService(engine, repos.Entries),
		Members:  service.NewMemberService(st, clk),
		Webhooks: service.NewWebhookService(webhookProducer, cfg.Payments.WebhookSecret, cfg.Payments.WebhookTolerance, clk, log),
	}, clk)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pool and producer go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = webhookProducer.Close(); err != nil {
		log.Error("Error closing payment events producer", "error", err)
	}

	postgresDB.Close()

	if serverErr != nil {
		log.Error("API gateway shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("API gateway shutdown completed")
}
