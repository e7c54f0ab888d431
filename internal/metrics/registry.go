package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/davidleathers/guardian-watch/internal/domain/ledger"
)

// Registry holds all domain-specific metrics for the application. A nil
// registry is valid and records nothing, so components can run unmetered in
// tests.
type Registry struct {
	meter metric.Meter

	// Ingestion metrics
	TransactionsIngested metric.Int64Counter
	MalformedRecords     metric.Int64Counter
	AlertsEmitted        metric.Int64Counter
	FlagsRaised          metric.Int64Counter

	// Baseline metrics
	BaselineCycleDuration metric.Float64Histogram
	BaselineUsersUpdated  metric.Int64Counter
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initIngestionMetrics(); err != nil {
		return nil, err
	}

	if err := r.initBaselineMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) initIngestionMetrics() error {
	var err error

	r.TransactionsIngested, err = r.meter.Int64Counter(
		"gw.ingestion.transactions_total",
		metric.WithDescription("Total number of transactions ingested"),
	)
	if err != nil {
		return err
	}

	r.MalformedRecords, err = r.meter.Int64Counter(
		"gw.ingestion.malformed_records_total",
		metric.WithDescription("Total number of malformed source records skipped"),
	)
	if err != nil {
		return err
	}

	r.AlertsEmitted, err = r.meter.Int64Counter(
		"gw.ingestion.alerts_total",
		metric.WithDescription("Total number of transactions with at least one fraud flag"),
	)
	if err != nil {
		return err
	}

	r.FlagsRaised, err = r.meter.Int64Counter(
		"gw.fraud.flags_total",
		metric.WithDescription("Total number of fraud flags raised, by rule"),
	)
	return err
}

func (r *Registry) initBaselineMetrics() error {
	var err error

	r.BaselineCycleDuration, err = r.meter.Float64Histogram(
		"gw.baseline.cycle_duration",
		metric.WithDescription("Duration of a baseline recalculation cycle in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return err
	}

	r.BaselineUsersUpdated, err = r.meter.Int64Counter(
		"gw.baseline.users_updated_total",
		metric.WithDescription("Total number of user baselines written"),
	)
	return err
}

// RecordIngested counts one ingested transaction.
func (r *Registry) RecordIngested(ctx context.Context) {
	if r == nil {
		return
	}
	r.TransactionsIngested.Add(ctx, 1)
}

// RecordMalformed counts one skipped malformed record.
func (r *Registry) RecordMalformed(ctx context.Context) {
	if r == nil {
		return
	}
	r.MalformedRecords.Add(ctx, 1)
}

// RecordAlert counts one emitted alert and each of its flags.
func (r *Registry) RecordAlert(ctx context.Context, flags []ledger.Flag) {
	if r == nil {
		return
	}
	r.AlertsEmitted.Add(ctx, 1)
	for _, f := range flags {
		r.FlagsRaised.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", f.String())))
	}
}

// RecordBaselineCycle records one completed recalculation cycle.
func (r *Registry) RecordBaselineCycle(ctx context.Context, elapsed time.Duration, usersUpdated int) {
	if r == nil {
		return
	}
	r.BaselineCycleDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	r.BaselineUsersUpdated.Add(ctx, int64(usersUpdated))
}
