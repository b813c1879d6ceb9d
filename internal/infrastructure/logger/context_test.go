package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
}

func TestFromContext(t *testing.T) {
	log, _ := observed()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestContextValues(t *testing.T) {
	log, logs := observed()
	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, log, "req-1")
	ctx, _ = WithTenantID(ctx, FromContext(ctx), "tenant-1")
	ctx, enriched := WithActorID(ctx, FromContext(ctx), "actor-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "actor-1", GetActorID(ctx))
	assert.Empty(t, GetTenantID(context.Background()))

	enriched.Info("settings updated")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "actor-1", fields["actor_id"])
}

func TestTraceCorrelation(t *testing.T) {
	log, logs := observed()
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Same(t, log, WithTraceContext(context.Background(), log))

	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))

	WithTraceContext(ctx, log).Info("posted")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestContextLogger(t *testing.T) {
	log, logs := observed()
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	ctx = WithContext(ctx, log)
	ctx = context.WithValue(ctx, tenantIDKey, "tenant-9")

	L(ctx).With(zap.String("consumer", "accounting.tender_posting")).Warn("fallback account used")
	L(ctx).Debug("debug line")
	L(ctx).Error("error line")

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, first.Level)
	fields := first.ContextMap()
	assert.Equal(t, "tenant-9", fields["tenant_id"])
	assert.Equal(t, "accounting.tender_posting", fields["consumer"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.NotContains(t, fields, "actor_id")

	assert.NotPanics(t, func() {
		WithLogger(context.Background(), nil).With(zap.Int("n", 1)).Info("dropped")
	})
	assert.NotNil(t, L(context.Background()).Zap())
}
