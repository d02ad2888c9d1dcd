package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/utafrali/storefront/services/cart/service")

// startSpan opens an internal span for a service operation on userID's data.
func startSpan(ctx context.Context, op, userID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(userAttr(userID)))
}

// endSpan records err, if any, and ends span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func userAttr(userID string) attribute.KeyValue {
	return attribute.String("cart.user_id", userID)
}
