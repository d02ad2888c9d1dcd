package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/storefront/pkg/database"

type slowQueryLog struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueries atomic.Pointer[slowQueryLog]

// SetSlowQueryLogging makes TraceQuery warn about statements that take at
// least threshold. A zero threshold or nil logger turns it off.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	if threshold <= 0 || logger == nil {
		slowQueries.Store(nil)
		return
	}
	slowQueries.Store(&slowQueryLog{threshold: threshold, logger: logger})
}

func loadSlowQueryLog() *slowQueryLog {
	return slowQueries.Load()
}

// TraceQuery starts a client span for one statement and returns a function
// that ends it with the statement's error:
//
//	ctx, end := database.TraceQuery(ctx, "GetSlot", getSlotSQL)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		sq := loadSlowQueryLog()
		if sq == nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed < sq.threshold {
			return
		}
		attrs := []slog.Attr{
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		sq.logger.LogAttrs(ctx, slog.LevelWarn, "slow query detected", attrs...)
	}
}
