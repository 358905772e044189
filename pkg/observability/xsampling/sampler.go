package xsampling

import (
	"context"
	"sync/atomic"
	"time"
)

// Sampler 采样策略接口。ShouldSample 返回 true 表示记录本次事件。
type Sampler interface {
	ShouldSample(ctx context.Context) bool
}

type constSampler bool

func (s constSampler) ShouldSample(context.Context) bool { return bool(s) }

// Always 返回总是记录的采样器
func Always() Sampler { return constSampler(true) }

// Never 返回从不记录的采样器
func Never() Sampler { return constSampler(false) }

// CountSampler 每 n 个事件记录 1 个
//
// 设计决策: 工厂函数返回具体类型，N() 与 Reset() 无法通过 Sampler 接口获得。
type CountSampler struct {
	n       uint64
	counter atomic.Uint64
}

// NewCountSampler 创建计数采样器，n < 1 时返回 ErrInvalidCount。
func NewCountSampler(n int) (*CountSampler, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}
	return &CountSampler{n: uint64(n)}, nil
}

// ShouldSample 第 1、n+1、2n+1... 次返回 true。零值实例按全采样处理。
func (s *CountSampler) ShouldSample(context.Context) bool {
	if s.n == 0 {
		return true
	}
	// 无符号计数溢出后取模仍保持周期
	return (s.counter.Add(1)-1)%s.n == 0
}

// Reset 重置计数器
func (s *CountSampler) Reset() { s.counter.Store(0) }

// N 返回采样间隔
func (s *CountSampler) N() int { return int(s.n) }

// IntervalSampler 每个时间窗口内只记录第一次事件
type IntervalSampler struct {
	interval time.Duration
	now      func() time.Time
	next     atomic.Int64 // 下一个窗口起点（UnixNano）
}

// IntervalOption IntervalSampler 配置选项
type IntervalOption func(*IntervalSampler)

// WithClock 设置时钟，用于测试
func WithClock(now func() time.Time) IntervalOption {
	return func(s *IntervalSampler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewIntervalSampler 创建时间窗口采样器，d <= 0 时返回 ErrInvalidInterval。
func NewIntervalSampler(d time.Duration, opts ...IntervalOption) (*IntervalSampler, error) {
	if d <= 0 {
		return nil, ErrInvalidInterval
	}
	s := &IntervalSampler{interval: d, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ShouldSample 当前时间到达窗口起点时返回 true 并开启新窗口。
// 并发调用时同一窗口只有一个调用方成功。
func (s *IntervalSampler) ShouldSample(context.Context) bool {
	now := s.now().UnixNano()
	for {
		next := s.next.Load()
		if now < next {
			return false
		}
		if s.next.CompareAndSwap(next, now+int64(s.interval)) {
			return true
		}
	}
}

// Interval 返回窗口长度
func (s *IntervalSampler) Interval() time.Duration { return s.interval }

var (
	_ Sampler = constSampler(false)
	_ Sampler = (*CountSampler)(nil)
	_ Sampler = (*IntervalSampler)(nil)
)
