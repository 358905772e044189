package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key
const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyDuration 耗时字段的标准 key
	KeyDuration = "duration"

	// KeyCount 计数字段的标准 key
	KeyCount = "count"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	// KeyFile 文件名字段的标准 key
	KeyFile = "file"

	// KeyBytes 字节数字段的标准 key
	KeyBytes = "bytes"
)

// Err 创建错误属性。err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "500ms"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// File 创建文件名属性
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Bytes 创建字节数属性
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}
