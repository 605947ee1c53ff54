package observability

import (
	"context"
	"time"

	"gatekeep/internal/models"
	"gatekeep/internal/storage"

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

// NewInstrumentedStorage creates a storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("gatekeep/storage")
	meter := otel.Meter("gatekeep/storage")

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
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
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

func (s *InstrumentedStorage) RecordEvent(ctx context.Context, event *models.AuditEvent) error {
	ctx, span := s.startSpan(ctx, "RecordEvent",
		attribute.String("event.kind", event.Kind),
	)
	start := time.Now()
	err := s.inner.RecordEvent(ctx, event)
	s.record(ctx, span, "RecordEvent", start, err)
	return err
}

func (s *InstrumentedStorage) Events(ctx context.Context, req *models.ListEventsRequest) ([]*models.AuditEvent, int, error) {
	ctx, span := s.startSpan(ctx, "Events",
		attribute.String("event.kind", req.Kind),
		attribute.Int("limit", req.Limit),
		attribute.Int("offset", req.Offset),
	)
	start := time.Now()
	result, total, err := s.inner.Events(ctx, req)
	s.record(ctx, span, "Events", start, err)
	return result, total, err
}

func (s *InstrumentedStorage) GetEvent(ctx context.Context, id string) (*models.AuditEvent, error) {
	ctx, span := s.startSpan(ctx, "GetEvent", attribute.String("event.id", id))
	start := time.Now()
	result, err := s.inner.GetEvent(ctx, id)
	s.record(ctx, span, "GetEvent", start, err)
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
