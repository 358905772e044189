// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化诊断日志，基于 log/slog 扩展
//   - xmetrics: 指标与追踪观测接口，OpenTelemetry 实现
//   - xsampling: 诊断事件采样策略
//   - xrotate: 日志文件轮转（按序号切换的日志文件与 lumberjack 诊断日志）
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 观测失败不影响写入路径
package observability
