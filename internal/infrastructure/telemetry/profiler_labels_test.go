package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+20)

	got := sanitizeLabels(map[string]string{
		"Source-Module": "pos",
		"tenant_id":     "0b0c6d1e-3e55-4a5b-b2b3-1c4f4f8d2e11",
		"event_id":      "e1",
		"consumer":      "accounting.void_posting",
		"empty":         "",
		"route":         long,
		"!!!":           "dropped",
	})

	assert.Equal(t, []string{
		"source_module", "pos",
		"consumer", "accounting.void_posting",
		"route", long[:MaxLabelValueLength],
	}, got, "pairs follow the order of the raw keys")
	assert.Nil(t, sanitizeLabels(nil))
}

func TestSanitizeLabelKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"consumer", "consumer"},
		{"Event Type", "event_type"},
		{"source-module", "source_module"},
		{"route/v1", "routev1"},
		{"§", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabelKey(tt.in), tt.in)
	}
}

func TestWithPprofLabels(t *testing.T) {
	var consumer string
	var found bool
	WithPprofLabels(context.Background(), ConsumerLabels("accounting.ach_posting", "ach.settled.v1"), func(ctx context.Context) {
		consumer, found = pprof.Label(ctx, ProfilingLabelConsumer)
	})
	assert.True(t, found)
	assert.Equal(t, "accounting.ach_posting", consumer)

	called := false
	WithPprofLabels(context.Background(), map[string]string{"tenant_id": "t"}, func(ctx context.Context) {
		called = true
		_, found = pprof.Label(ctx, "tenant_id")
	})
	assert.True(t, called)
	assert.False(t, found)
}

func TestWithProfilingLabels(t *testing.T) {
	var method string
	WithProfilingLabels(context.Background(), HTTPRequestLabels("/api/v1/journals/:id/void", "POST"), func(ctx context.Context) {
		method, _ = pprof.Label(ctx, ProfilingLabelMethod)
	})
	assert.Equal(t, "POST", method)
}
