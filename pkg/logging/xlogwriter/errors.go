package xlogwriter

import "errors"

var (
	// ErrWriterActive 表示进程内已有存活的 Writer。
	ErrWriterActive = errors.New("xlogwriter: another writer is active")

	// ErrClosed 表示 Writer 已关闭。
	ErrClosed = errors.New("xlogwriter: writer is closed")

	// ErrEmptyDir 表示未配置日志目录。
	ErrEmptyDir = errors.New("xlogwriter: log directory is required")

	// ErrInvalidBufferSize 表示缓冲区容量无效。
	ErrInvalidBufferSize = errors.New("xlogwriter: invalid buffer size")

	// ErrInvalidThreshold 表示加密刷盘阈值无效（必须小于缓冲区容量）。
	ErrInvalidThreshold = errors.New("xlogwriter: invalid flush threshold")

	// ErrInvalidFlushDelay 表示延迟 flush 时间无效。
	ErrInvalidFlushDelay = errors.New("xlogwriter: invalid flush delay")
)
