package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/davidleathers/guardian-watch/internal/domain/errors"
	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
	"github.com/davidleathers/guardian-watch/internal/metrics"
	"github.com/davidleathers/guardian-watch/internal/service/fraud"
)

// Runner drives the ingestion loop: pull a transaction from the source,
// record it, evaluate the fraud rules and react to flags. The loop is a
// single sequential stream; the baseline recalculator races it on the shared
// store.
type Runner struct {
	source   TransactionSource
	store    Store
	detector fraud.Service
	sink     AlertSink
	logger   *slog.Logger
	metrics  *metrics.Registry
	limiter  *rate.Limiter
}

// NewRunner creates an ingestion runner. pacingDelay throttles consumption
// to one record per delay; zero disables pacing.
func NewRunner(source TransactionSource, store Store, detector fraud.Service, sink AlertSink, pacingDelay time.Duration, logger *slog.Logger, reg *metrics.Registry) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if pacingDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(pacingDelay), 1)
	}

	return &Runner{
		source:   source,
		store:    store,
		detector: detector,
		sink:     sink,
		logger:   logger,
		metrics:  reg,
		limiter:  limiter,
	}
}

// Run consumes the source until end-of-input or a fatal error. Malformed
// records are skipped; a record either fully applies to the store or not at
// all. The caller stops the baseline recalculator once Run returns.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		tx, err := r.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Info("source exhausted, ingestion complete")
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				r.logger.Warn("skipping malformed record", "error", err)
				r.metrics.RecordMalformed(ctx)
				continue
			}
			return apperrors.Wrap(err, "reading transaction source")
		}

		if err := r.process(ctx, tx); err != nil {
			return err
		}
	}
}

func (r *Runner) process(ctx context.Context, tx ledger.Transaction) error {
	// Creation before evaluation: the rule engine's contract assumes the
	// user and merchant exist by the time it runs.
	r.store.UpsertUser(tx.UserID)
	r.store.UpsertMerchant(tx.MerchantName)
	r.store.Append(tx)
	r.metrics.RecordIngested(ctx)

	r.logger.Info("transaction ingested",
		"user_id", tx.UserID,
		"amount", tx.Amount.String(),
		"timestamp", tx.Timestamp.Format("2006-01-02 15:04:05"),
		"merchant", tx.MerchantName)

	flags, err := r.detector.Evaluate(ctx, tx)
	if err != nil {
		return apperrors.Wrap(err, "evaluating fraud rules")
	}
	if len(flags) == 0 {
		return nil
	}

	// One increment per flagged transaction, however many rules fired.
	if err := r.store.IncrementMerchantFlagCount(tx.MerchantName); err != nil {
		return apperrors.Wrap(err, "incrementing merchant flag count")
	}
	r.metrics.RecordAlert(ctx, flags)

	if err := r.sink.Publish(ctx, Alert{Transaction: tx, Flags: flags}); err != nil {
		return apperrors.Wrap(err, "publishing alert")
	}
	return nil
}
