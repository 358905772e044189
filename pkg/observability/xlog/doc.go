// Package xlog 基于 log/slog 的结构化诊断日志。
//
// 日志写入器自身的诊断信息（丢行、加密回退、文件创建失败等）通过本包输出，
// 与写入器处理的业务日志完全分离，写入器从不通过自身记录诊断。
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，后续 Set 操作被跳过）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("info").
//		SetFormat("json").
//		SetRotation("/data/log/xlogfile.diag.log").
//		Build()
//	defer cleanup()
//
// SetRotation 使用 xrotate.NewLumberjack 按大小轮转诊断文件。
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)，与 slog 一致。
// [Level.Prefix] 返回写入日志文件时的单字母级别前缀（" D/ "、" I/ "…）。
//
// # 动态级别
//
// Build 返回 [LoggerWithLevel]，SetLevel 运行时生效，派生 logger 共享同一 LevelVar。
//
// # 空 Logger
//
// [Discard] 返回丢弃所有输出的 Logger，用作默认值。
package xlog
