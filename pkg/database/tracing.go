package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/reviewregistry/pkg/database"

var slowQuery struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowQueryLogging logs queries slower than threshold as warnings.
// A zero threshold or nil logger disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQuery.mu.Lock()
	defer slowQuery.mu.Unlock()
	slowQuery.threshold = threshold
	slowQuery.logger = logger
}

func slowQueryConfig() (time.Duration, *slog.Logger) {
	slowQuery.mu.RLock()
	defer slowQuery.mu.RUnlock()
	return slowQuery.threshold, slowQuery.logger
}

// TraceQuery starts a client span for a database call on the given system
// ("postgresql", "redis"). Call the returned function with the call's error:
//
//	ctx, end := database.TraceQuery(ctx, "postgresql", "IsRegistered", query)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, system, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
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

		threshold, logger := slowQueryConfig()
		if threshold <= 0 || logger == nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed < threshold {
			return
		}
		attrs := []any{
			slog.String("system", system),
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.WarnContext(ctx, "slow query detected", attrs...)
	}
}
