package xsampling

import "errors"

var (
	// ErrInvalidCount 表示 CountSampler 的采样间隔 n 不合法（必须 >= 1）
	ErrInvalidCount = errors.New("xsampling: count n must be >= 1")

	// ErrInvalidInterval 表示 IntervalSampler 的窗口不合法（必须 > 0）
	ErrInvalidInterval = errors.New("xsampling: interval must be > 0")
)
