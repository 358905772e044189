package xmetrics

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xlogfile/xmetrics"
	unknownComponent           = "unknown"
	unknownOperation           = "unknown"

	metricOperationTotal    = "xlogfile.operation.total"
	metricOperationDuration = "xlogfile.operation.duration"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation 名称，空字符串忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，nil 忽略。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
// 未指定 provider 时使用 otel 全局 provider。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(&cfg)
	}

	o := &otelObserver{
		tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName),
		meter:  cfg.meterProvider.Meter(cfg.instrumentationName),
	}
	if err := o.initOperationInstruments(); err != nil {
		return nil, err
	}
	return o, nil
}

// otelObserver 每次 flush/rotate/compress 产生一个 span，
// 并按 component/operation/status 记录次数与耗时。
type otelObserver struct {
	tracer trace.Tracer
	meter  metric.Meter

	opTotal    metric.Int64Counter
	opDuration metric.Float64Histogram

	// counters 缓存 Count 按名称惰性创建的计数器
	counters sync.Map // map[string]metric.Int64Counter
}

func (o *otelObserver) initOperationInstruments() error {
	var err error
	o.opTotal, err = o.meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("writer operations by component, operation and status"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricOperationTotal, err)
	}
	o.opDuration, err = o.meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("writer operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreateHistogram, metricOperationDuration, err)
	}
	return nil
}

// Start 开始一次观测跨度。
func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &otelSpan{
		observer:  o,
		component: orUnknown(opts.Component, unknownComponent),
		operation: orUnknown(opts.Operation, unknownOperation),
		start:     time.Now(),
	}

	attrs := append(s.labels(), attrsToOTel(opts.Attrs)...)
	ctx, s.span = o.tracer.Start(ctx, s.operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	s.ctx = ctx
	return ctx, s
}

// Count 累加计数器。计数器创建失败时丢弃本次计数。
func (o *otelObserver) Count(ctx context.Context, name string, n int64, attrs ...Attr) {
	c, ok := o.counter(name)
	if !ok {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.Add(context.WithoutCancel(ctx), n, metric.WithAttributes(attrsToOTel(attrs)...))
}

func (o *otelObserver) counter(name string) (metric.Int64Counter, bool) {
	if c, ok := o.counters.Load(name); ok {
		return c.(metric.Int64Counter), true
	}
	c, err := o.meter.Int64Counter(name, metric.WithUnit("1"))
	if err != nil {
		return nil, false
	}
	// SDK 对同名 instrument 返回同一实例，并发创建时以先存入者为准
	actual, _ := o.counters.LoadOrStore(name, c)
	return actual.(metric.Int64Counter), true
}

type otelSpan struct {
	observer  *otelObserver
	span      trace.Span
	ctx       context.Context
	component string
	operation string
	start     time.Time
	once      sync.Once
}

func (s *otelSpan) labels() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("component", s.component),
		attribute.String("operation", s.operation),
	}
}

// End 结束观测并记录结果，重复调用只生效一次。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.once.Do(func() { s.end(result) })
}

func (s *otelSpan) end(result Result) {
	status := resolveStatus(result)

	if result.Err != nil {
		s.span.RecordError(result.Err)
	}
	if status == StatusError {
		desc := "operation failed"
		if result.Err != nil {
			desc = result.Err.Error()
		}
		s.span.SetStatus(codes.Error, desc)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	if len(result.Attrs) > 0 {
		s.span.SetAttributes(attrsToOTel(result.Attrs)...)
	}
	s.span.End()

	// 调用方 ctx 可能已取消（Shutdown 超时），指标仍需记录
	ctx := context.WithoutCancel(s.ctx)
	set := metric.WithAttributes(append(s.labels(), attribute.String("status", string(status)))...)
	s.observer.opTotal.Add(ctx, 1, set)
	s.observer.opDuration.Record(ctx, time.Since(s.start).Seconds(), set)
}

func resolveStatus(result Result) Status {
	switch {
	case result.Status != "":
		return result.Status
	case result.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

func orUnknown(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key != "" && a.Value != nil {
			kvs = append(kvs, toKeyValue(a))
		}
	}
	return kvs
}

// toKeyValue 把 Attr 转为 OTel 属性；Duration 记为纳秒，其余未知类型按 %v 格式化。
func toKeyValue(a Attr) attribute.KeyValue {
	k := attribute.Key(a.Key)
	switch v := a.Value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return k.String(fmt.Sprint(v))
		}
		return k.Int64(int64(v))
	case float64:
		return k.Float64(v)
	case time.Duration:
		return k.Int64(v.Nanoseconds())
	case fmt.Stringer:
		return k.String(v.String())
	default:
		return k.String(fmt.Sprint(v))
	}
}
