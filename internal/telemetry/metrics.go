package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics is the gateway's metrics sink: admission decision counters, a
// filter counter, and an upstream latency histogram. A nil *Metrics is a
// valid no-op sink.
type Metrics struct {
	admitted         metric.Int64Counter
	denied           metric.Int64Counter
	blacklisted      metric.Int64Counter
	filtered         metric.Int64Counter
	upstreamDuration metric.Float64Histogram
}

// InitMetrics installs a meter provider with a periodic stdout exporter and
// creates the gateway instruments. The returned shutdown function flushes
// pending metrics.
func InitMetrics(serviceName string, logger *slog.Logger) (*Metrics, func(context.Context) error, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, nil, err
	}

	res, err := newResource(serviceName)
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Minute))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	m, err := newInstruments(mp.Meter("github.com/nixxxo/local-llm/internal/telemetry"))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("OpenTelemetry metrics initialized", slog.String("service", serviceName))

	return m, mp.Shutdown, nil
}

func newInstruments(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.admitted, err = meter.Int64Counter("gateway.admission.admitted",
		metric.WithDescription("Requests admitted by the rate limiter")); err != nil {
		return nil, err
	}
	if m.denied, err = meter.Int64Counter("gateway.admission.denied",
		metric.WithDescription("Requests denied with a cooldown")); err != nil {
		return nil, err
	}
	if m.blacklisted, err = meter.Int64Counter("gateway.admission.blacklisted",
		metric.WithDescription("Requests denied because the client is blacklisted")); err != nil {
		return nil, err
	}
	if m.filtered, err = meter.Int64Counter("gateway.filter.flagged",
		metric.WithDescription("Texts replaced by the content filter")); err != nil {
		return nil, err
	}
	if m.upstreamDuration, err = meter.Float64Histogram("gateway.upstream.duration",
		metric.WithDescription("Upstream call latency"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordAdmission counts one admission decision.
func (m *Metrics) RecordAdmission(ctx context.Context, allowed, blacklisted bool) {
	if m == nil {
		return
	}
	switch {
	case blacklisted:
		m.blacklisted.Add(ctx, 1)
	case allowed:
		m.admitted.Add(ctx, 1)
	default:
		m.denied.Add(ctx, 1)
	}
}

// RecordFiltered counts one filter replacement. Direction is "inbound" or
// "outbound".
func (m *Metrics) RecordFiltered(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.filtered.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// RecordUpstream records one upstream call's latency and outcome.
func (m *Metrics) RecordUpstream(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.upstreamDuration.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
