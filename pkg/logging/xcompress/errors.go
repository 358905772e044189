package xcompress

import "errors"

var (
	// ErrNilCompressor 表示未提供 Compressor。
	ErrNilCompressor = errors.New("xcompress: compressor is required")

	// ErrCompressorPanic 表示压缩任务 panic，已被恢复。
	ErrCompressorPanic = errors.New("xcompress: compressor panicked")

	// ErrEmptyDir 表示日志目录为空。
	ErrEmptyDir = errors.New("xcompress: directory is required")
)
