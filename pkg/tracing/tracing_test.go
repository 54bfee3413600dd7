package tracing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "review-registry"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
}

func TestInitTracer_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracer(context.Background(), Config{
		ServiceName:  "review-registry",
		OTLPEndpoint: "localhost:4318",
		SampleRate:   1,
		Enabled:      true,
	})
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// Export fails without a collector; only termination matters here.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		root string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{2, "ParentBased{root:AlwaysOnSampler"},
		{0, "ParentBased{root:AlwaysOffSampler"},
		{-1, "ParentBased{root:AlwaysOffSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := Sampler(tt.rate).Description()
		assert.True(t, strings.HasPrefix(desc, tt.root), "rate %v: %s", tt.rate, desc)
	}

	var _ sdktrace.Sampler = Sampler(0.5)
}

func TestResource(t *testing.T) {
	res := Resource(Config{ServiceName: "review-registry", ServiceVersion: "1.2.0", Environment: "test"})

	v, ok := res.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "review-registry", v.AsString())

	v, ok = res.Set().Value(attribute.Key("deployment.environment"))
	require.True(t, ok)
	assert.Equal(t, "test", v.AsString())
}
