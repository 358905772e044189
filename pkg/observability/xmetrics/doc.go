// Package xmetrics 为日志写入器提供指标与 trace 观测。
//
// 写入器只依赖 Observer 接口，NewOTelObserver 是基于 OpenTelemetry 的实现。
// Observer 提供两类能力：
//   - Start/End：一次操作的跨度（flush、rotate、compress），
//     同时记录 xlogfile.operation.total 与 xlogfile.operation.duration
//   - Count：按名称累加的计数器（如 xlogfile.lines.dropped），首次使用时惰性创建
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xlogwriter",
//		Operation: "flush",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
//	xmetrics.Count(ctx, obs, "xlogfile.lines.dropped", 1)
//
// 统一属性：component / operation / status。
package xmetrics
