package xbuffer

import "errors"

var (
	// ErrOverflow 表示剩余空间不足以容纳本次追加的数据，数据被整体拒绝。
	ErrOverflow = errors.New("xbuffer: buffer overflow")

	// ErrInvalidCapacity 表示容量无效（必须为正数）。
	ErrInvalidCapacity = errors.New("xbuffer: invalid capacity")
)
