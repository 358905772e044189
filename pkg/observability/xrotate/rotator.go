package xrotate

import "io"

// 编译时断言：Rotator 接口是 io.WriteCloser 的超集
var _ io.WriteCloser = (Rotator)(nil)

// 编译时接口检查
var (
	_ Rotator = (*Sequence)(nil)
	_ Rotator = (*lumberjackRotator)(nil)
)

// Rotator 日志轮转器接口
//
// 隐式实现 [io.WriteCloser]，可直接用于任何接受 io.Writer 的场景
// （如 xlog 的输出目标）。所有实现都必须是并发安全的。
//
// Close 的终态语义由实现决定：lumberjack 实现关闭后返回 [ErrClosed]，
// Sequence 的 Close 只释放当前文件，之后的 Write 会重新打开。
type Rotator interface {
	// Write 写入数据，必要时先执行轮转
	Write(p []byte) (n int, err error)

	// Close 关闭当前文件
	Close() error

	// Rotate 手动触发轮转
	Rotate() error
}
