package actor

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"
)

// Option 定义 Loop 可选配置函数类型。
type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
		name:   "actor",
	}
}

// WithLogger 设置日志记录器，用于记录 handler panic。
// 传入 nil 将被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置循环名称，用于日志中区分来源。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// Loop 单 worker 消息循环。
//
// Post/PostDelayed/CancelDelayed/Quit 可从任意 goroutine 并发调用，
// handler 始终在循环自身的 goroutine 中串行执行。
type Loop[M any] struct {
	handler func(M)
	opts    options

	mu       sync.Mutex
	queue    []M
	timers   timerHeap[M]
	pending  map[string]*timerEntry[M]
	seq      uint64
	started  bool
	quitting bool

	wake chan struct{}
	done chan struct{}
}

// New 创建消息循环，需调用 Start 后才会处理消息。
//
// 在 Start 之前投递的消息会保留在队列中，启动后按顺序处理。
func New[M any](handler func(M), opts ...Option) (*Loop[M], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Loop[M]{
		handler: handler,
		opts:    o,
		pending: make(map[string]*timerEntry[M]),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}, nil
}

// Start 启动 worker goroutine。幂等。
func (l *Loop[M]) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

// Post 投递立即消息。循环已退出或正在退出时返回 false。
func (l *Loop[M]) Post(msg M) bool {
	l.mu.Lock()
	if l.quitting {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, msg)
	l.mu.Unlock()
	l.notify()
	return true
}

// PostDelayed 投递延迟消息，在 delay 之后处理。
//
// 同一 key 已有待处理条目时，旧条目被替换，保证同一 key 至多一个待处理延迟消息。
// key 为空时 panic（属于编程错误）。
func (l *Loop[M]) PostDelayed(key string, delay time.Duration, msg M) bool {
	return l.postDelayed(key, delay, msg, false)
}

// PostDelayedEarliest 与 PostDelayed 相同，但同一 key 已有更早或相同截止时间的条目时
// 保留原条目，新消息被合并进去。
//
// 持续投递不会推迟已有的截止时间：首次投递后 delay 内必定处理一次。
func (l *Loop[M]) PostDelayedEarliest(key string, delay time.Duration, msg M) bool {
	return l.postDelayed(key, delay, msg, true)
}

func (l *Loop[M]) postDelayed(key string, delay time.Duration, msg M, keepEarlier bool) bool {
	if key == "" {
		panic(ErrEmptyKey)
	}
	if delay < 0 {
		delay = 0
	}
	deadline := time.Now().Add(delay)

	l.mu.Lock()
	if l.quitting {
		l.mu.Unlock()
		return false
	}
	if old, ok := l.pending[key]; ok {
		if keepEarlier && !old.deadline.After(deadline) {
			l.mu.Unlock()
			return true
		}
		l.timers.remove(old)
	}
	l.seq++
	e := &timerEntry[M]{deadline: deadline, seq: l.seq, key: key, msg: msg}
	heap.Push(&l.timers, e)
	l.pending[key] = e
	l.mu.Unlock()
	l.notify()
	return true
}

// CancelDelayed 取消指定 key 的待处理延迟消息。不存在的 key 被忽略。
func (l *Loop[M]) CancelDelayed(keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		if e, ok := l.pending[key]; ok {
			l.timers.remove(e)
			delete(l.pending, key)
		}
	}
}

// HasDelayed 报告指定 key 是否有待处理的延迟消息。
func (l *Loop[M]) HasDelayed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[key]
	return ok
}

// Quit 请求循环退出：拒绝新消息，处理完已排队的立即消息后退出。
// 未启动的循环会被启动以便排空队列。幂等。
func (l *Loop[M]) Quit() {
	l.mu.Lock()
	l.quitting = true
	needStart := !l.started
	l.started = true
	l.mu.Unlock()

	if needStart {
		go l.run()
	}
	l.notify()
}

// Done 返回在循环退出后关闭的 channel。
func (l *Loop[M]) Done() <-chan struct{} {
	return l.done
}

func (l *Loop[M]) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop[M]) run() {
	defer close(l.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		due, batch, wait, exit := l.collect(time.Now())
		for _, e := range due {
			if msg, ok := l.claim(e); ok {
				l.dispatch(msg)
			}
		}
		for _, msg := range batch {
			l.dispatch(msg)
		}
		if exit {
			return
		}
		if len(due) > 0 || len(batch) > 0 {
			continue
		}

		var timeout <-chan time.Time
		if wait > 0 {
			timer.Reset(wait)
			timeout = timer.C
		}
		select {
		case <-l.wake:
		case <-timeout:
		}
		timer.Stop()
	}
}

// collect 取出本轮要处理的消息。
//
// 返回值：已到期的延迟条目（按截止时间顺序）、立即队列快照、
// 距下一个延迟消息到期的等待时间（0 表示无延迟消息）、是否应当退出。
// 到期条目离开堆但仍登记在 pending 中，直到 claim 取走；
// 此前被 CancelDelayed 或 PostDelayed 替换的条目不会执行。
func (l *Loop[M]) collect(now time.Time) (due []*timerEntry[M], batch []M, wait time.Duration, exit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.quitting {
		// 退出阶段丢弃全部延迟消息，只排空立即队列
		l.timers = nil
		clear(l.pending)
		if len(l.queue) == 0 {
			return nil, nil, 0, true
		}
		batch, l.queue = l.queue, nil
		return nil, batch, 0, false
	}

	for {
		e := l.timers.peek()
		if e == nil || e.deadline.After(now) {
			break
		}
		heap.Pop(&l.timers)
		due = append(due, e)
	}

	batch, l.queue = l.queue, nil

	if e := l.timers.peek(); e != nil {
		wait = e.deadline.Sub(now)
		if wait <= 0 {
			wait = time.Nanosecond
		}
	}
	return due, batch, wait, false
}

// claim 取走仍然有效的到期条目
func (l *Loop[M]) claim(e *timerEntry[M]) (M, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quitting || l.pending[e.key] != e {
		var zero M
		return zero, false
	}
	delete(l.pending, e.key)
	return e.msg, true
}

// dispatch 执行 handler，隔离 panic 防止循环退出
func (l *Loop[M]) dispatch(msg M) {
	defer func() {
		if r := recover(); r != nil {
			l.opts.logger.Error("actor: handler panic recovered",
				slog.String("loop", l.opts.name),
				slog.Any("panic", r),
			)
		}
	}()
	l.handler(msg)
}
