package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/membership-ledger/internal/billing_engine/components"
	billingservice "github.com/membership-ledger/internal/billing_engine/service"
	"github.com/membership-ledger/internal/config"
	"github.com/membership-ledger/internal/data/postgres"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/ledger_engine/outbox_poller"
	ledgerservice "github.com/membership-ledger/internal/ledger_engine/service"
	"github.com/membership-ledger/internal/logger"
	"github.com/membership-ledger/internal/platform/clock"
	"github.com/membership-ledger/internal/platform/messaging/producers"
	"github.com/membership-ledger/internal/platform/persistence"
	"github.com/spf13/pflag"
)

const (
	exitOK         = 0
	exitFailures   = 1
	exitUnbalanced = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	asOfFlag := pflag.String("as-of", "", "billing date as YYYY-MM-DD, defaults to today")
	pflag.Parse()

	appCtx, cancelAppCtx := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("billing_runner")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		return exitFailures
	}

	log := logger.NewLogger(cfg)
	clk := clock.SystemClock{}

	asOf := shared.DateOf(clk.Now())
	if *asOfFlag != "" {
		if asOf, err = shared.ParseDate(*asOfFlag); err != nil {
			log.Error("Invalid --as-of date", "value", *asOfFlag, "error", err)
			return exitFailures
		}
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		return exitFailures
	}
	defer postgresDB.Close()

	st := postgres.NewStore(log, postgresDB)
	engine := ledgerservice.NewEngine(st, clk, log.With("component", "ledger_engine"), cfg.Ledger.PageSize)
	billingService := components.CreateBillingService(st, engine, clk, log, cfg)
	if wpService, ok := billingService.(*billingservice.WorkerPoolBillingService); ok {
		defer wpService.Shutdown()
	}

	report, err := billingService.DoRegularBilling(appCtx, asOf)

	// Entries committed before a failure still have pending outbox rows
	drainOutbox(cfg, st, log)

	var unbalanced *ledger.UnbalancedLedgerError
	switch {
	case errors.As(err, &unbalanced):
		log.Error("Ledger invariant violated after billing run",
			"total_debits", unbalanced.TotalDebits,
			"total_credits", unbalanced.TotalCredits,
		)
		return exitUnbalanced
	case err != nil:
		log.Error("Billing run aborted", "as_of", shared.FormatDate(asOf), "error", err)
		return exitFailures
	}

	log.Info("Billing run finished",
		"as_of", shared.FormatDate(asOf),
		"members_due", report.MembersDue,
		"members_billed", len(report.Billed),
		"entries_posted", report.EntriesPosted,
		"failures", len(report.Failures),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	for _, failure := range report.Failures {
		log.Warn("Member not billed", "member_id", failure.MemberID.String(), "error", failure.Cause)
	}
	if report.HasFailures() {
		return exitFailures
	}
	return exitOK
}

// drainOutbox publishes the entries of this run. Anything left pending is picked up
// by the payment processor's poller, so failures here only get logged.
func drainOutbox(cfg *config.Config, st *postgres.Store, log *slog.Logger) {
	ledgerProducer, err := producers.NewEventProducer(log, &cfg.Kafka, cfg.Kafka.LedgerEventsTopic)
	if err != nil {
		log.Warn("Ledger events producer unavailable, leaving outbox pending", "error", err)
		return
	}
	defer func() {
		if err := ledgerProducer.Close(); err != nil {
			log.Error("Error closing ledger events producer", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outboxRepo := st.Repositories().Outbox
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, outbox_poller.NewLedgerPublisher(outboxRepo, ledgerProducer, log), log)
	if err := poller.Drain(ctx); err != nil {
		log.Warn("Outbox drain incomplete", "error", err)
	}
}
