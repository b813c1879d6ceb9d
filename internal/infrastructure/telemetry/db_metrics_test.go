package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewDBMetrics_NilMeter(t *testing.T) {
	_, err := NewDBMetrics(nil, DefaultDBMetricsConfig(), nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestDBMetricsPlugin_RecordsStatements(t *testing.T) {
	h := newMeterHarness()
	metrics, err := NewDBMetrics(h.provider.Meter("db.client"), DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: time.Hour,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	db := newTestDB(t)
	require.NoError(t, db.Use(NewDBMetricsPlugin(metrics, zaptest.NewLogger(t))))

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	require.NoError(t, db.Create(&widget{Name: "b"}).Error)
	var got []widget
	require.NoError(t, db.Find(&got).Error)
	require.NoError(t, db.Exec("DELETE FROM widgets WHERE name = ?", "a").Error)

	collected := h.collect(t)
	total := collected["db_query_total"]
	assert.Equal(t, int64(2), sumFor(t, total, AttrDBOperation.String("INSERT")))
	assert.Equal(t, int64(1), sumFor(t, total, AttrDBOperation.String("SELECT")))
	assert.Equal(t, int64(1), sumFor(t, total, AttrDBOperation.String("DELETE")))

	hist, ok := collected["db_query_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(4), count)

	_, slow := collected["db_slow_query_total"]
	assert.False(t, slow, "nothing crosses an hour threshold")
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	h := newMeterHarness()
	metrics, err := NewDBMetrics(h.provider.Meter("db.client"), DBMetricsConfig{SlowQueryThreshold: time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "select", "journal_entries", 5*time.Millisecond)
	metrics.RecordQuery(ctx, "", "", 5*time.Millisecond)

	collected := h.collect(t)
	assert.Equal(t, int64(1), sumFor(t, collected["db_query_total"], AttrDBOperation.String("SELECT")))
	assert.Equal(t, int64(1), sumFor(t, collected["db_query_total"], AttrDBOperation.String("UNKNOWN")))
	assert.Equal(t, int64(1), sumFor(t, collected["db_slow_query_total"], AttrDBTable.String("journal_entries")))
	assert.Equal(t, int64(1), sumFor(t, collected["db_slow_query_total"], AttrDBTable.String("unknown")))
}

func TestDBMetrics_PoolStats(t *testing.T) {
	h := newMeterHarness()
	metrics, err := NewDBMetrics(h.provider.Meter("db.client"), DBMetricsConfig{PoolStatsInterval: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, err)

	// no pool yet: collection refuses to start and Stop still returns
	metrics.StartPoolStatsCollection(context.Background())

	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	metrics.SetSQLDB(sqlDB)
	metrics.StartPoolStatsCollection(context.Background())

	assert.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := h.reader.Collect(context.Background(), &rm); err != nil {
			return false
		}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name == "db_pool_connections_max" {
					return true
				}
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(1), gaugeFor(t, h.collect(t)["db_pool_connections_max"]))

	metrics.Stop()
	metrics.Stop()
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := newTestDB(t)
	m, err := RegisterDBMetrics(db, &MeterProvider{}, DefaultDBMetricsConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = RegisterDBMetrics(db, nil, DefaultDBMetricsConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM accounts":            "SELECT",
		"  insert into journal_entries ...": "INSERT",
		"update outbox_events set ...":      "UPDATE",
		"DELETE FROM dead_letters":          "DELETE",
		"WITH x AS (SELECT 1) SELECT * x":   "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
	assert.Equal(t, "OTHER", detectOperationType(""))
}
