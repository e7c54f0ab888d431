package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
	"github.com/davidleathers/guardian-watch/internal/infrastructure/config"
	"github.com/davidleathers/guardian-watch/internal/infrastructure/repository"
	"github.com/davidleathers/guardian-watch/internal/infrastructure/source"
	"github.com/davidleathers/guardian-watch/internal/infrastructure/telemetry"
	"github.com/davidleathers/guardian-watch/internal/metrics"
	"github.com/davidleathers/guardian-watch/internal/service/baseline"
	"github.com/davidleathers/guardian-watch/internal/service/fraud"
	"github.com/davidleathers/guardian-watch/internal/service/ingestion"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting guardian watch",
		"environment", cfg.Environment,
		"source", cfg.Source.Path)

	registry, err := metrics.NewRegistry("guardian-watch")
	if err != nil {
		return err
	}

	clock := ledger.RealClock{}
	store := repository.NewStore(clock)

	detector := fraud.NewService(store, thresholdsFromConfig(cfg.Rules), clock)

	recalc := baseline.NewService(store,
		cfg.Baseline.RecalcInterval, cfg.Baseline.WindowMonths,
		clock, logger.With("component", "baseline"), registry)
	recalc.Start()
	defer recalc.Stop()

	src, err := source.NewCSVSource(cfg.Source.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	sink := &logSink{logger: logger.With("component", "alerts")}

	runner := ingestion.NewRunner(src, store, detector, sink,
		cfg.Source.PacingDelay, logger.With("component", "ingestion"), registry)

	if err := runner.Run(ctx); err != nil {
		return err
	}

	logger.Info("shutting down gracefully")
	return nil
}

// logSink emits flagged transactions through the structured logger.
type logSink struct {
	logger *slog.Logger
}

func (s *logSink) Publish(ctx context.Context, alert ingestion.Alert) error {
	s.logger.WarnContext(ctx, "fraud detected",
		"transaction_id", alert.Transaction.ID.String(),
		"user_id", alert.Transaction.UserID,
		"merchant", alert.Transaction.MerchantName,
		"amount", alert.Transaction.Amount.String(),
		"flags", ledger.FlagStrings(alert.Flags))
	return nil
}

func thresholdsFromConfig(rules config.RulesConfig) *fraud.Thresholds {
	return &fraud.Thresholds{
		HighAmountFactor:            decimal.NewFromInt(rules.HighAmountFactor),
		OddTimeStart:                rules.OddTimeStart,
		OddTimeEnd:                  rules.OddTimeEnd,
		BurstWindow:                 rules.BurstWindow,
		BurstMax:                    rules.BurstMax,
		HourlyWindow:                rules.HourlyWindow,
		HourlyMax:                   rules.HourlyMax,
		SameMerchantWindow:          rules.SameMerchantWindow,
		SameMerchantMax:             rules.SameMerchantMax,
		FraudulentMerchantThreshold: rules.FraudulentMerchantThreshold,
	}
}
