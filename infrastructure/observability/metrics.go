package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"socialbets/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	votesCastCounter             metric.Int64Counter
	betsResolvedCounter          metric.Int64Counter
	betsCancelledCounter         metric.Int64Counter
	interventionsCounter         metric.Int64Counter
	participationsSettledCounter metric.Int64Counter
	settlementFailuresCounter    metric.Int64Counter
	fulfillmentClaimsCounter     metric.Int64Counter
	sweepRunsCounter             metric.Int64Counter
	sweepDurationHist            metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{config: cfg}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.useMeter(mp.meterProvider.Meter("socialbets")); err != nil {
		return err
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// useMeter creates every instrument on the meter and enables recording
func (mp *MetricsProvider) useMeter(meter metric.Meter) error {
	mp.meter = meter
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.enabled = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.votesCastCounter, VotesCastTotal, "Resolution votes cast, including replacements"},
		{&mp.betsResolvedCounter, BetsResolvedTotal, "Bets moved to resolved"},
		{&mp.betsCancelledCounter, BetsCancelledTotal, "Bets moved to cancelled"},
		{&mp.interventionsCounter, InterventionsNeededTotal, "Bets past their resolve date without votes left for an operator"},
		{&mp.participationsSettledCounter, ParticipationsSettledTotal, "Participations settled"},
		{&mp.settlementFailuresCounter, SettlementFailuresTotal, "Participations whose settlement failed and awaits reconciliation"},
		{&mp.fulfillmentClaimsCounter, FulfillmentClaimsTotal, "Social stake fulfillment claims recorded"},
		{&mp.sweepRunsCounter, SweepRunsTotal, "Sweeper job runs"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.sweepDurationHist, err = mp.meter.Float64Histogram(
		SweepDuration,
		metric.WithDescription("Duration of sweeper job runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider == nil {
		return nil
	}
	if err := mp.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.enabled = false
	return nil
}

// RecordVoteCast records a resolution vote
func (mp *MetricsProvider) RecordVoteCast() {
	if !mp.isEnabled() {
		return
	}
	mp.votesCastCounter.Add(context.Background(), 1)
}

// RecordBetResolved records a bet resolution by outcome kind
func (mp *MetricsProvider) RecordBetResolved(outcomeKind string, forced bool) {
	if !mp.isEnabled() {
		return
	}
	mp.betsResolvedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOutcomeKind, outcomeKind),
			attribute.String(LabelForced, strconv.FormatBool(forced)),
		),
	)
}

// RecordBetCancelled records a cancellation and what triggered it
func (mp *MetricsProvider) RecordBetCancelled(trigger string) {
	if !mp.isEnabled() {
		return
	}
	mp.betsCancelledCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelTrigger, trigger)),
	)
}

// RecordInterventionNeeded records a bet held for an operator
func (mp *MetricsProvider) RecordInterventionNeeded() {
	if !mp.isEnabled() {
		return
	}
	mp.interventionsCounter.Add(context.Background(), 1)
}

// RecordSettlement records the counts of one settlement pass
func (mp *MetricsProvider) RecordSettlement(settled, failed int) {
	if !mp.isEnabled() {
		return
	}
	if settled > 0 {
		mp.participationsSettledCounter.Add(context.Background(), int64(settled))
	}
	if failed > 0 {
		mp.settlementFailuresCounter.Add(context.Background(), int64(failed))
	}
}

// RecordFulfillmentClaim records a loser's fulfillment claim
func (mp *MetricsProvider) RecordFulfillmentClaim() {
	if !mp.isEnabled() {
		return
	}
	mp.fulfillmentClaimsCounter.Add(context.Background(), 1)
}

// RecordSweepRun records one sweeper job run
func (mp *MetricsProvider) RecordSweepRun(job string, duration time.Duration, err error) {
	if !mp.isEnabled() {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelJob, job),
		attribute.String(LabelStatus, status),
	)
	mp.sweepRunsCounter.Add(context.Background(), 1, attrs)
	mp.sweepDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider; nil until initialized
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
