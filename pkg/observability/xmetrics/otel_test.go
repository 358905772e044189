package xmetrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ============================================================================
// 测试辅助函数
// ============================================================================

func newTestTracerProvider() (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return tp, exporter
}

func newTestMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

// sumOf 收集名为 name 的 Int64 Sum 指标中满足 match 的数据点之和
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, match func(attribute.Set) bool) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is %T", name, m.Data)
			for _, dp := range sum.DataPoints {
				if match == nil || match(dp.Attributes) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttr(key, value string) func(attribute.Set) bool {
	return func(s attribute.Set) bool {
		v, ok := s.Value(attribute.Key(key))
		return ok && v.AsString() == value
	}
}

// ============================================================================
// NewOTelObserver
// ============================================================================

func TestNewOTelObserver_Default(t *testing.T) {
	obs, err := NewOTelObserver(WithInstrumentationName(""), WithTracerProvider(nil), WithMeterProvider(nil))
	require.NoError(t, err)
	require.NotNil(t, obs)
}

func TestNewOTelObserver_NilOption(t *testing.T) {
	_, err := NewOTelObserver(nil)
	assert.ErrorIs(t, err, ErrNilOption)
}

// ============================================================================
// Span
// ============================================================================

func TestOTelObserver_SpanRecordsMetrics(t *testing.T) {
	tp, exporter := newTestTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	mp, reader := newTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	_, span := Start(context.Background(), obs, SpanOptions{
		Component: "xlogwriter",
		Operation: "flush",
		Attrs:     []Attr{String("mode", "encrypted"), Int("bytes", 4097)},
	})
	span.End(Result{Err: errors.New("disk full")})
	span.End(Result{}) // 幂等

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "flush", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	assert.Equal(t, int64(1), sumOf(t, reader, metricOperationTotal, hasAttr("status", "error")))
	assert.Equal(t, int64(0), sumOf(t, reader, metricOperationTotal, hasAttr("status", "ok")))
}

func TestOTelObserver_SpanDefaults(t *testing.T) {
	tp, exporter := newTestTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	obs, err := NewOTelObserver(WithTracerProvider(tp))
	require.NoError(t, err)

	//nolint:staticcheck // 验证 nil context 处理
	ctx, span := obs.Start(nil, SpanOptions{})
	require.NotNil(t, ctx)
	span.End(Result{Status: StatusOK, Attrs: []Attr{Duration("elapsed", time.Millisecond)}})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, unknownOperation, spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

// ============================================================================
// Count
// ============================================================================

func TestOTelObserver_Count(t *testing.T) {
	mp, reader := newTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	obs, err := NewOTelObserver(WithMeterProvider(mp))
	require.NoError(t, err)

	ctx := context.Background()
	Count(ctx, obs, "xlogfile.lines.dropped", 1)
	Count(ctx, obs, "xlogfile.lines.dropped", 2)
	Count(ctx, obs, "xlogfile.flush.bytes", 4097, String("mode", "plain"))
	Count(ctx, obs, "xlogfile.flush.bytes", 0) // 忽略
	Count(ctx, nil, "xlogfile.flush.bytes", 5)  // 忽略

	assert.Equal(t, int64(3), sumOf(t, reader, "xlogfile.lines.dropped", nil))
	assert.Equal(t, int64(4097), sumOf(t, reader, "xlogfile.flush.bytes", hasAttr("mode", "plain")))
}

func TestOTelObserver_CountConcurrent(t *testing.T) {
	mp, reader := newTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	obs, err := NewOTelObserver(WithMeterProvider(mp))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				obs.Count(context.Background(), "xlogfile.lines.appended", 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), sumOf(t, reader, "xlogfile.lines.appended", nil))
}

func TestOTelObserver_ExplicitStatus(t *testing.T) {
	tp, exporter := newTestTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	mp, reader := newTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	// 回退到明文写出：错误被记录，但操作本身成功
	_, span := obs.Start(context.Background(), SpanOptions{Component: "xlogwriter", Operation: "flush"})
	span.End(Result{Status: StatusOK, Err: errors.New("encrypt failed")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, int64(1), sumOf(t, reader, metricOperationTotal, hasAttr("status", "ok")))
}

// ============================================================================
// Noop 与兜底
// ============================================================================

type nilObserver struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) { return nil, nil }
func (nilObserver) Count(context.Context, string, int64, ...Attr)              {}

func TestStart_Fallbacks(t *testing.T) {
	ctx, span := Start(context.Background(), nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)

	ctx, span = Start(context.Background(), nilObserver{}, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)

	ctx, span = NoopObserver{}.Start(nil, SpanOptions{}) //nolint:staticcheck // nil ctx
	assert.NotNil(t, ctx)
	span.End(Result{})
	NoopObserver{}.Count(ctx, "x", 1)
}

func TestToKeyValue(t *testing.T) {
	tests := []struct {
		attr Attr
		want attribute.KeyValue
	}{
		{String("s", "v"), attribute.String("s", "v")},
		{Bool("b", true), attribute.Bool("b", true)},
		{Int("i", 3), attribute.Int("i", 3)},
		{Int64("i64", 4), attribute.Int64("i64", 4)},
		{Duration("d", time.Second), attribute.Int64("d", int64(time.Second))},
		{Any("u", uint64(7)), attribute.Int64("u", 7)},
		{Any("f", 1.5), attribute.Float64("f", 1.5)},
		{Any("x", []int{1}), attribute.String("x", "[1]")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toKeyValue(tt.attr), tt.attr.Key)
	}
	assert.Nil(t, attrsToOTel(nil))
	assert.Empty(t, attrsToOTel([]Attr{{Key: ""}, {Key: "nil"}}))
}
