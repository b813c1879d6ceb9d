package telemetry

import (
	"context"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelConsumer     = "consumer"
	ProfilingLabelEventType    = "event_type"
	ProfilingLabelSourceModule = "source_module"
	ProfilingLabelRoute        = "route"
	ProfilingLabelMethod       = "method"
	ProfilingLabelOperation    = "operation"
)

// MaxLabelValueLength caps label values to keep profile series bounded
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels. tenant_id is kept off profiles
// entirely; metrics carry the per-tenant split.
var highCardinalityLabels = map[string]bool{
	"tenant_id":           true,
	"request_id":          true,
	"event_id":            true,
	"entry_id":            true,
	"trace_id":            true,
	"span_id":             true,
	"source_reference_id": true,
}

// WithProfilingLabels runs fn with pyroscope labels attached to its goroutine.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels runs fn under plain pprof labels, for builds without the agent.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// ConsumerLabels labels work done by an event consumer
func ConsumerLabels(consumer, eventType string) map[string]string {
	return map[string]string{
		ProfilingLabelConsumer:  consumer,
		ProfilingLabelEventType: eventType,
	}
}

// HTTPRequestLabels labels an admin API request
func HTTPRequestLabels(route, method string) map[string]string {
	return map[string]string{
		ProfilingLabelRoute:  route,
		ProfilingLabelMethod: method,
	}
}

// sanitizeLabels returns sorted key/value pairs with empty, high-cardinality and
// malformed keys removed and long values truncated.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean := sanitizeLabelKey(key)
		if clean == "" || highCardinalityLabels[clean] {
			continue
		}
		pairs = append(pairs, clean, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases key, maps spaces and dashes to underscores and drops
// anything else outside [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ProfileConsumer runs one consumer invocation under ConsumerLabels. Its signature
// matches event.DispatchWrapper.
func ProfileConsumer(ctx context.Context, consumer, eventType string, fn func(context.Context)) {
	WithProfilingLabels(ctx, ConsumerLabels(consumer, eventType), fn)
}
