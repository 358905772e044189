// Package xrun 管理进程内长期运行的服务：并发启动、信号退出与协调关闭。
//
// Group 基于 errgroup：任一服务返回错误或 Cancel 被调用时，其余服务的 ctx
// 被取消。Wait 过滤普通的 context.Canceled，但保留显式的退出原因：
// 收到信号时返回 *SignalError，可用 errors.Is(err, ErrSignal) 判断。
//
// Run/RunServices 默认监听 DefaultSignals()，WithSignals 自定义信号列表，
// WithoutSignalHandler 禁用信号处理。
//
// xlogwriter.Writer 实现了 Service，可以直接交给 RunServices：
//
//	err := xrun.RunServices(ctx, writer)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
//
// Ticker 把周期任务包装为服务函数，例如定时 FlushAndRotate。
package xrun
