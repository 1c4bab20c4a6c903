package observability

import (
	"context"
	"errors"
	"time"

	"bind8/internal/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedLimitStore wraps a ratelimit.Store with a span and latency
// histogram per Take, an error counter, and a gauge of tracked keys.
type InstrumentedLimitStore struct {
	inner    ratelimit.Store
	kind     string
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	gauge    metric.Registration
}

var _ ratelimit.Store = (*InstrumentedLimitStore)(nil)

// NewInstrumentedLimitStore wraps inner. kind labels every measurement
// ("memory" or "redis").
func NewInstrumentedLimitStore(inner ratelimit.Store, kind string) (*InstrumentedLimitStore, error) {
	meter := otel.Meter("bind8/ratelimit")

	duration, err := meter.Float64Histogram(
		"ratelimit.store.duration",
		metric.WithDescription("Duration of rate limit store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"ratelimit.store.errors",
		metric.WithDescription("Rate limit store failures; requests are admitted when these occur"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	tracked, err := meter.Int64ObservableGauge(
		"ratelimit.store.keys",
		metric.WithDescription("Keys currently tracked by the rate limit store"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	s := &InstrumentedLimitStore{
		inner:    inner,
		kind:     kind,
		tracer:   otel.Tracer("bind8/ratelimit"),
		duration: duration,
		errors:   errCounter,
	}

	s.gauge, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := inner.Len(ctx)
		if err != nil {
			errCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("store", kind), attribute.String("operation", "len")))
			return nil
		}
		o.ObserveInt64(tracked, int64(n), metric.WithAttributes(attribute.String("store", kind)))
		return nil
	}, tracked)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *InstrumentedLimitStore) Take(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Entry, ratelimit.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "ratelimit.Take", trace.WithAttributes(
		attribute.String("ratelimit.store", s.kind),
		attribute.Int("ratelimit.limit", limit),
	))
	defer span.End()

	start := time.Now()
	entry, d, err := s.inner.Take(ctx, key, limit, window)
	attrs := metric.WithAttributes(attribute.String("store", s.kind), attribute.String("operation", "take"))
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return entry, d, err
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", d.Allowed))
	return entry, d, nil
}

func (s *InstrumentedLimitStore) Len(ctx context.Context) (int, error) {
	return s.inner.Len(ctx)
}

func (s *InstrumentedLimitStore) Ping(ctx context.Context) error {
	if err := s.inner.Ping(ctx); err != nil {
		s.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("store", s.kind), attribute.String("operation", "ping")))
		return err
	}
	return nil
}

// Close unregisters the gauge and closes the wrapped store.
func (s *InstrumentedLimitStore) Close() error {
	var errs []error
	if s.gauge != nil {
		if err := s.gauge.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.inner.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
