package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(context.Background(), Config{}, zap.NewNop(), WithSpanProcessor(recorder))
	require.NoError(t, err)
	require.True(t, tp.IsEnabled())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp.sdk)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.5,
		ServiceName:       "stock-ledger",
		LogsEnabled:       true,
		MetricsInterval:   time.Second,
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, 0.5, cfg.SamplingRatio)
	assert.True(t, cfg.LogsEnabled)
	assert.Equal(t, time.Second, cfg.MetricsInterval)
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	tp, err := NewTracerProvider(ctx, Config{}, log)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, Config{}, log)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	_, err = NewLedgerMetrics(mp.Meter("x"))
	assert.NoError(t, err)
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, Config{Enabled: true}, log)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled(), "log export needs LogsEnabled as well")
	assert.False(t, lp.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestStartLedgerSpan(t *testing.T) {
	recorder := withRecorder(t)
	projectID := uuid.MustParse("8f14e45f-ceea-467f-a0e6-5c6b7e2b1f00")

	_, span := StartLedgerSpan(context.Background(), "deduct", projectID, SpanAttrQuantity.Int64(7))
	span.SetAttributes(SpanAttrBatchCount.Int(2))
	RecordError(span, shared.ErrInsufficientStock)
	span.End()

	_, ok := StartLedgerSpan(context.Background(), "reconcile", projectID)
	RecordError(ok, nil)
	ok.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ledger.deduct", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	attrs := attrMap(spans[0])
	assert.Equal(t, projectID.String(), attrs[SpanAttrProjectID].AsString())
	assert.Equal(t, int64(7), attrs[SpanAttrQuantity].AsInt64())
	assert.Equal(t, int64(2), attrs[SpanAttrBatchCount].AsInt64())
	assert.Equal(t, shared.CodeInsufficientStock, attrs[SpanAttrErrorCode].AsString())

	assert.Equal(t, "ledger.reconcile", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.NotContains(t, attrMap(spans[1]), SpanAttrErrorCode)
}

func TestLevelFilterCore(t *testing.T) {
	core := &levelFilterCore{Core: zapcore.NewNopCore(), minLevel: zapcore.WarnLevel}
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	// The wrapped no-op core is never enabled, so nothing passes
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
	assert.IsType(t, &levelFilterCore{}, core.With(nil))
}

func TestAnnotateSpan(t *testing.T) {
	recorder := withRecorder(t)
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ctx, span := otel.Tracer("test").Start(context.Background(), "query")
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))

	tx := db.Session(&gorm.Session{NewDB: true})
	tx.Statement.Context = ctx
	tx.Statement.Table = "warehouse_entries"
	tx.Statement.RowsAffected = 3
	tx.Error = errors.New("deadlock detected")
	annotateSpan(tx, 200*time.Millisecond)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0])
	assert.Equal(t, "warehouse_entries", attrs["db.sql.table"].AsString())
	assert.Equal(t, int64(3), attrs["db.rows_affected"].AsInt64())
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := withRecorder(t)
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zap.NewNop()))

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()))
	var one int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
	assert.NotEmpty(t, recorder.Ended())
}

func TestDBTracingConfigFrom(t *testing.T) {
	cfg := DBTracingConfigFrom(
		config.TelemetryConfig{Enabled: true, DBTraceEnabled: true, DBSlowQueryThresh: time.Second},
		config.DatabaseConfig{Driver: "postgres"},
	)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Second, cfg.SlowQueryThresh)
	assert.Equal(t, "postgres", cfg.DBSystem)

	cfg = DBTracingConfigFrom(config.TelemetryConfig{DBTraceEnabled: true}, config.DatabaseConfig{})
	assert.False(t, cfg.Enabled)
}
