package xpool

import "errors"

// 构造参数错误
var (
	ErrNilHandler       = errors.New("xpool: handler cannot be nil")
	ErrInvalidWorkers   = errors.New("xpool: invalid worker count")
	ErrInvalidQueueSize = errors.New("xpool: invalid queue size")
)

// 运行期错误
var (
	// ErrPoolStopped Shutdown 之后提交任务
	ErrPoolStopped = errors.New("xpool: pool is stopped")

	// ErrQueueFull 非阻塞提交时队列已满，调用方决定丢弃或重试
	ErrQueueFull = errors.New("xpool: queue is full")

	// ErrNilContext Shutdown 传入 nil context
	ErrNilContext = errors.New("xpool: nil context")
)
