package xcompress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Trigger 单任务压缩触发器
type Trigger struct {
	compressor Compressor

	ctx    context.Context
	cancel context.CancelFunc

	active atomic.Bool
	wg     sync.WaitGroup
}

// NewTrigger 创建触发器
func NewTrigger(c Compressor) (*Trigger, error) {
	if c == nil {
		return nil, ErrNilCompressor
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{compressor: c, ctx: ctx, cancel: cancel}, nil
}

// Start 在后台启动一次压缩。已有任务未释放时返回 false。
//
// 任务结束后以压缩结果调用 notify（在任务 goroutine 中）；调用方随后必须调用
// Done 释放名额。notify 为 nil 时任务结束自动释放。
func (t *Trigger) Start(dir, exclude string, notify func(error)) bool {
	if dir == "" {
		return false
	}
	if !t.active.CompareAndSwap(false, true) {
		return false
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := t.run(dir, exclude)
		if notify == nil {
			t.Done()
			return
		}
		defer func() { recover() }() //nolint:errcheck // 回调 panic 不影响任务退出
		notify(err)
	}()
	return true
}

func (t *Trigger) run(dir, exclude string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCompressorPanic, r)
		}
	}()
	return t.compressor.Compress(t.ctx, dir, exclude)
}

// Done 释放任务名额，允许下一次 Start
func (t *Trigger) Done() {
	t.active.Store(false)
}

// Active 报告是否有未释放的任务
func (t *Trigger) Active() bool {
	return t.active.Load()
}

// Wait 等待所有已启动的任务 goroutine 结束；ctx 到期时取消任务并返回 ctx.Err()。
func (t *Trigger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done
		return ctx.Err()
	}
}

// Cancel 取消正在运行的任务。取消后的触发器仍可 Start，但任务会立即收到已取消的 ctx。
func (t *Trigger) Cancel() {
	t.cancel()
}
