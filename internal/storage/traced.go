package storage

import (
	"context"

	"github.com/2beens/notesapp/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedStorage wraps every storage call in a span.
type TracedStorage struct {
	next    Storage
	backend string
	tracer  trace.Tracer
}

func NewTracedStorage(next Storage, backend string) *TracedStorage {
	return &TracedStorage{
		next:    next,
		backend: backend,
		tracer:  tracing.GlobalTracer,
	}
}

func (ts *TracedStorage) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	ctx, span := ts.tracer.Start(ctx, "storage."+op)
	span.SetAttributes(
		attribute.String("storage.backend", ts.backend),
		attribute.String("storage.key", key),
	)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}

func (ts *TracedStorage) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := ts.start(ctx, "getItem", key)
	value, ok, err := ts.next.GetItem(ctx, key)
	span.SetAttributes(
		attribute.Bool("storage.found", ok),
		attribute.Int("storage.size", len(value)),
	)
	endSpan(span, err)
	return value, ok, err
}

func (ts *TracedStorage) SetItem(ctx context.Context, key string, value []byte) error {
	ctx, span := ts.start(ctx, "setItem", key)
	span.SetAttributes(attribute.Int("storage.size", len(value)))
	err := ts.next.SetItem(ctx, key, value)
	endSpan(span, err)
	return err
}

func (ts *TracedStorage) RemoveItem(ctx context.Context, key string) error {
	ctx, span := ts.start(ctx, "removeItem", key)
	err := ts.next.RemoveItem(ctx, key)
	endSpan(span, err)
	return err
}
