package observability

import (
	"context"
	"time"

	"bind8/internal/models"
	"bind8/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

var _ storage.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("bind8/storage")
	meter := otel.Meter("bind8/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) ListWeddings(ctx context.Context) ([]*models.Wedding, error) {
	ctx, span := s.startSpan(ctx, "ListWeddings")
	start := time.Now()
	result, err := s.inner.ListWeddings(ctx)
	span.SetAttributes(attribute.Int("result.count", len(result)))
	s.record(ctx, span, "ListWeddings", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetWedding(ctx context.Context, id string) (*models.Wedding, error) {
	ctx, span := s.startSpan(ctx, "GetWedding", attribute.String("wedding_id", id))
	start := time.Now()
	result, err := s.inner.GetWedding(ctx, id)
	s.record(ctx, span, "GetWedding", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveWedding(ctx context.Context, w *models.Wedding) error {
	ctx, span := s.startSpan(ctx, "SaveWedding",
		attribute.String("wedding_id", w.ID),
		attribute.Bool("premium", w.IsPremium),
	)
	start := time.Now()
	err := s.inner.SaveWedding(ctx, w)
	s.record(ctx, span, "SaveWedding", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteWedding(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeleteWedding", attribute.String("wedding_id", id))
	start := time.Now()
	err := s.inner.DeleteWedding(ctx, id)
	s.record(ctx, span, "DeleteWedding", start, err)
	return err
}

func (s *InstrumentedStorage) SaveUpload(ctx context.Context, u *models.Upload) error {
	ctx, span := s.startSpan(ctx, "SaveUpload",
		attribute.String("wedding_id", u.WeddingID),
		attribute.Int64("upload.size", u.Size),
	)
	start := time.Now()
	err := s.inner.SaveUpload(ctx, u)
	s.record(ctx, span, "SaveUpload", start, err)
	return err
}

func (s *InstrumentedStorage) ListUploads(ctx context.Context, weddingID string) ([]*models.Upload, error) {
	ctx, span := s.startSpan(ctx, "ListUploads", attribute.String("wedding_id", weddingID))
	start := time.Now()
	result, err := s.inner.ListUploads(ctx, weddingID)
	s.record(ctx, span, "ListUploads", start, err)
	return result, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
