package utils

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = sync.OnceValue(func() trace.Tracer { return otel.GetTracerProvider().Tracer("marksplit") })

func Tracer() trace.Tracer {
	return tracer()
}

func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
