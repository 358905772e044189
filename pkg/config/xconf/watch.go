package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 配置变更回调。重新加载失败时 s 为 nil，err 非 nil。
type WatchCallback func(s *Settings, err error)

// WatchOption 监视器配置选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	load     []LoadOption
}

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithLoadOptions 设置重载时附加的加载选项（文件路径由 Watch 指定）
func WithLoadOptions(opts ...LoadOption) WatchOption {
	return func(o *watchOptions) {
		o.load = append(o.load, opts...)
	}
}

// Watcher 配置文件监视器
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback WatchCallback
	opts     watchOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	wg      sync.WaitGroup
}

// Watch 创建配置文件监视器，需调用 Start 或 StartAsync 开始监视。
//
// 监视文件所在目录而非文件本身：编辑器保存时可能先删除再创建，
// 直接监视文件会丢失事件。
func Watch(path string, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if _, err := detectFormat(path); err != nil {
		return nil, err
	}
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: failed to create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		return nil, errors.Join(
			fmt.Errorf("xconf: failed to watch directory %s: %w", dir, err),
			fsWatcher.Close(),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		watcher:  fsWatcher,
		callback: callback,
		opts:     o,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start 启动监视并阻塞，直到 Stop
func (w *Watcher) Start() {
	if !w.markRunning() {
		return
	}
	w.run()
}

// StartAsync 在后台 goroutine 中启动监视
func (w *Watcher) StartAsync() {
	if !w.markRunning() {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
}

func (w *Watcher) markRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.ctx.Err() != nil {
		return false
	}
	w.running = true
	return true
}

// Stop 停止监视。幂等。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.cancel()
	w.running = false
	err := w.watcher.Close()
	w.mu.Unlock()
	return err
}

// Wait 等待 StartAsync 启动的 goroutine 退出
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Reload 立即重新加载一次
func (w *Watcher) Reload() (*Settings, error) {
	opts := append([]LoadOption{WithFile(w.path)}, w.opts.load...)
	return Load(opts...)
}

func (w *Watcher) run() {
	filename := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.notify(nil, fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// handleEvent 只处理目标文件的 Write/Create/Rename（原子写入）事件
func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.debounce, func() {
		if w.ctx.Err() != nil {
			return
		}
		w.notify(w.Reload())
	})
}

func (w *Watcher) notify(s *Settings, err error) {
	if w.callback == nil || w.ctx.Err() != nil {
		return
	}
	w.callback(s, err)
}
