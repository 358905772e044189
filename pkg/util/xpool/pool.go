package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
)

const (
	maxWorkers   = 1024
	maxQueueSize = 1 << 20
)

var _ io.Closer = (*WorkerPool[int])(nil)

// WorkerPool 是一个泛型 worker pool 实现。
type WorkerPool[T any] struct {
	workers   int
	queueSize int
	handler   func(T)
	opts      options

	mu      sync.RWMutex
	queue   chan T
	stopped bool

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

// NewWorkerPool 创建并启动 worker pool。
func NewWorkerPool[T any](workers, queueSize int, handler func(T), opts ...Option) (*WorkerPool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d, want 1~%d", ErrInvalidWorkers, workers, maxWorkers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d, want 1~%d", ErrInvalidQueueSize, queueSize, maxQueueSize)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &WorkerPool[T]{
		workers:   workers,
		queueSize: queueSize,
		handler:   handler,
		opts:      o,
		queue:     make(chan T, queueSize),
		done:      make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

// worker 从 queue 读取直到 channel 关闭，保证关闭时处理完剩余任务。
func (p *WorkerPool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *WorkerPool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{
				slog.String("pool", p.opts.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			}
			if p.opts.logTaskValue {
				attrs = append(attrs, slog.Any("task", task))
			} else {
				attrs = append(attrs, slog.String("task_type", fmt.Sprintf("%T", task)))
			}
			p.opts.logger.Error("xpool: worker panic recovered", attrs...)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
// 已关闭返回 ErrPoolStopped，队列满返回 ErrQueueFull。
func (p *WorkerPool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 停止接收任务，等待队列中所有任务完成。
func (p *WorkerPool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收任务并等待队列排空，ctx 到期时返回 ctx.Err()。
//
// 超时返回后残留 worker 仍会处理剩余任务，可通过 Done() 等待。
func (p *WorkerPool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 返回在所有 worker 退出后关闭的 channel。
func (p *WorkerPool[T]) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量。
func (p *WorkerPool[T]) Workers() int {
	return p.workers
}

// QueueSize 返回队列大小。
func (p *WorkerPool[T]) QueueSize() int {
	return p.queueSize
}
