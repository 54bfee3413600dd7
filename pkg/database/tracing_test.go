package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "postgresql", "IsRegistered", "SELECT EXISTS(...)")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.IsRegistered", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "IsRegistered", attrs["db.operation"])
}

func TestTraceQuery_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "redis", "HGETALL", "purchase_token:1")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestSlowQueryLogging(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "postgresql", "SlowSelect", "SELECT pg_sleep(1)")
	end(errors.New("canceled"))

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "SlowSelect")
	assert.Contains(t, out, "canceled")
}

func TestSlowQueryLogging_BelowThreshold(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Hour, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "postgresql", "Fast", "SELECT 1")
	end(nil)
	assert.Empty(t, buf.String())
}

func TestSlowQueryLogging_Disabled(t *testing.T) {
	setupTestTracer(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "postgresql", "Any", "SELECT 1")
	assert.NotPanics(t, func() { end(nil) })
}
