package xlogwriter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xlogfile/internal/actor"
	"github.com/omeyang/xlogfile/pkg/logging/xbuffer"
	"github.com/omeyang/xlogfile/pkg/logging/xcompress"
	"github.com/omeyang/xlogfile/pkg/logging/xframe"
	"github.com/omeyang/xlogfile/pkg/observability/xlog"
	"github.com/omeyang/xlogfile/pkg/observability/xmetrics"
	"github.com/omeyang/xlogfile/pkg/observability/xrotate"
)

// 延迟消息 key，同一 key 至多一个待处理条目
const (
	keyFlush = "flush"
	keyClose = "close"
)

type msgKind uint8

const (
	msgAppend msgKind = iota
	msgFlush
	msgForceFlush
	msgRotate
	msgClose
	msgShutdownClose
	msgCompressionDone
)

type message struct {
	kind msgKind
	line []byte
	err  error
}

// active 进程级单实例名额
var active atomic.Bool

// Stats Writer 运行计数快照
type Stats struct {
	// Appended 进入缓冲区的行数
	Appended uint64
	// Dropped 因缓冲区满或已关闭而丢弃的行数
	Dropped uint64
	// Flushes 成功写入文件的批次数
	Flushes uint64
	// FlushedBytes 成功写入的批次原始字节数（加密前）
	FlushedBytes uint64
	// FlushErrors 打开文件、加密或写入失败的次数
	FlushErrors uint64
	// Fallbacks 加密失败回退为明文帧的次数
	Fallbacks uint64
	// Rotations 切换到新文件的次数（大小上限或手动）
	Rotations uint64
	// CompressJobs 启动的压缩任务数
	CompressJobs uint64
}

type counters struct {
	appended, dropped, flushes, flushedBytes atomic.Uint64
	flushErrors, fallbacks, rotations        atomic.Uint64
	compressJobs                             atomic.Uint64
}

// Writer 本地日志写入器。
//
// Submit/Flush/FlushAndRotate/Shutdown 可从任意 goroutine 并发调用。
// 缓冲区、文件序列与压缩标记只在 actor goroutine 中修改；
// Start 之前的 Submit 在调用方 goroutine 中直接写入缓冲区，由 startMu 串行化。
type Writer struct {
	opts      options
	encrypted bool
	threshold int

	loop    *actor.Loop[message]
	buf     *xbuffer.Buffer
	enc     *xframe.Encoder
	seq     *xrotate.Sequence
	trigger *xcompress.Trigger

	startMu sync.Mutex
	started atomic.Bool
	closing atomic.Bool
	release sync.Once

	// actor 独占
	scanPending bool
	finished    bool

	stats counters
}

// New 创建 Writer。进程内已有存活 Writer 时返回 ErrWriterActive。
//
// 创建后需调用 Start；在此之前 Submit 的日志行保留在缓冲区中。
func New(opts ...Option) (*Writer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	enc, err := newEncoder(&o)
	if err != nil {
		return nil, err
	}

	if !active.CompareAndSwap(false, true) {
		return nil, ErrWriterActive
	}
	w, err := build(o, enc)
	if err != nil {
		active.Store(false)
		return nil, err
	}
	return w, nil
}

func (o *options) validate() error {
	if o.dir == "" {
		return ErrEmptyDir
	}
	if o.bufferSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBufferSize, o.bufferSize)
	}
	if o.threshold == 0 {
		o.threshold = o.bufferSize / 4
	}
	if o.threshold < 0 || o.threshold >= o.bufferSize {
		return fmt.Errorf("%w: %d, buffer size %d", ErrInvalidThreshold, o.threshold, o.bufferSize)
	}
	if o.flushDelay < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFlushDelay, o.flushDelay)
	}
	if o.idleClose < 0 {
		return fmt.Errorf("%w: idle close %s", ErrInvalidFlushDelay, o.idleClose)
	}
	return nil
}

func newEncoder(o *options) (*xframe.Encoder, error) {
	c := o.cipher
	if c == nil && o.publicKeyHex != "" {
		pub, err := xframe.ParsePublicKeyHex(o.publicKeyHex)
		if err != nil {
			return nil, err
		}
		if c, err = xframe.NewStdCipher(pub); err != nil {
			return nil, err
		}
	}
	if c == nil {
		return xframe.NewPlainEncoder(), nil
	}
	var encOpts []xframe.Option
	if o.strict {
		encOpts = append(encOpts, xframe.WithStrictEncryption())
	}
	return xframe.NewEncryptedEncoder(c, encOpts...)
}

func build(o options, enc *xframe.Encoder) (*Writer, error) {
	buf, err := xbuffer.New(o.bufferSize)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		opts:        o,
		encrypted:   enc.Mode() == xframe.ModeEncrypted,
		threshold:   o.threshold,
		buf:         buf,
		enc:         enc,
		scanPending: true,
	}

	seqOpts := []xrotate.SequenceOption{
		xrotate.WithMaxFileSize(o.maxFileSize),
		xrotate.WithClock(o.now),
		xrotate.WithOnCreate(w.fileCreated),
	}
	if w.encrypted {
		seqOpts = append(seqOpts, xrotate.WithPrefix(xrotate.EncryptedPrefix))
	}
	if o.legacyNames {
		seqOpts = append(seqOpts, xrotate.WithLegacyNames())
	}
	if w.seq, err = xrotate.NewSequence(o.dir, seqOpts...); err != nil {
		return nil, err
	}

	diag := xlog.Slog(o.logger)
	compressor := o.compressor
	if compressor == nil {
		compressor = xcompress.NewZipCompressor(xcompress.WithLogger(diag))
	}
	if w.trigger, err = xcompress.NewTrigger(compressor); err != nil {
		return nil, err
	}

	if w.loop, err = actor.New(w.handle, actor.WithLogger(diag), actor.WithName(component)); err != nil {
		return nil, err
	}
	return w, nil
}

// ============================================================================
// 调用方 API
// ============================================================================

// Start 启动 actor 循环。幂等。
func (w *Writer) Start() {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	if w.started.Load() {
		return
	}
	w.started.Store(true)
	w.loop.Start()
}

// Submit 提交一行日志，从不阻塞。
//
// 时间戳在调用方 goroutine 中取得。缓冲区满时该行被丢弃；
// Shutdown 之后提交的行被静默丢弃。
func (w *Writer) Submit(level xlog.Level, text string) {
	if w.closing.Load() {
		w.stats.dropped.Add(1)
		return
	}
	line := AppendLine(nil, w.opts.now(), w.opts.timestampLayout, level, text)

	if !w.started.Load() {
		w.startMu.Lock()
		if !w.started.Load() {
			w.appendLine(line)
			w.startMu.Unlock()
			return
		}
		w.startMu.Unlock()
	}
	if !w.loop.Post(message{kind: msgAppend, line: line}) {
		w.stats.dropped.Add(1)
	}
}

// Write 实现 io.Writer，p 作为一行 INFO 日志提交（去掉末尾换行）。
// 关闭后返回 ErrClosed。
func (w *Writer) Write(p []byte) (int, error) {
	if w.closing.Load() {
		return 0, ErrClosed
	}
	w.Submit(xlog.LevelInfo, string(bytes.TrimRight(p, "\r\n")))
	return len(p), nil
}

// Flush 请求强制 flush：忽略加密阈值，缓冲区非空即写入。异步执行。
func (w *Writer) Flush() {
	w.loop.Post(message{kind: msgForceFlush})
}

// FlushAndRotate 强制 flush 后关闭当前文件并切换到下一个序号，
// 新文件创建时触发历史日志压缩。异步执行。
func (w *Writer) FlushAndRotate() {
	w.loop.Post(message{kind: msgForceFlush})
	w.loop.Post(message{kind: msgRotate})
}

// Shutdown 强制 flush 并关闭文件，等待 actor 退出与正在运行的压缩任务结束。
//
// 未启动的 Writer 会先启动以排空缓冲区。ctx 到期时返回 ctx.Err()，
// 单实例名额在后台完成收尾后释放。重复调用返回 ErrClosed。
func (w *Writer) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !w.closing.CompareAndSwap(false, true) {
		return ErrClosed
	}
	w.Start()
	w.loop.Post(message{kind: msgForceFlush})
	w.loop.Post(message{kind: msgShutdownClose})
	w.loop.Quit()

	select {
	case <-w.loop.Done():
	case <-ctx.Done():
		go func() {
			<-w.loop.Done()
			w.trigger.Cancel()
			_ = w.trigger.Wait(context.Background())
			w.releaseSlot()
		}()
		return ctx.Err()
	}

	err := w.trigger.Wait(ctx)
	w.releaseSlot()
	return err
}

// Run 启动 Writer 并阻塞到 ctx 取消，随后在 shutdownTimeout 内完成 Shutdown。
// 签名与 xrun.Group 的服务函数一致。
func (w *Writer) Run(ctx context.Context) error {
	w.Start()
	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), w.opts.shutdownTimeout)
	defer cancel()
	if err := w.Shutdown(sctx); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// Mode 返回写入器的帧模式
func (w *Writer) Mode() xframe.Mode {
	return w.enc.Mode()
}

// Dir 返回日志目录
func (w *Writer) Dir() string {
	return w.seq.Dir()
}

// CurrentFile 返回当前打开文件的完整路径，未打开时返回空字符串
func (w *Writer) CurrentFile() string {
	name := w.seq.Name()
	if name == "" {
		return ""
	}
	return filepath.Join(w.seq.Dir(), name)
}

// Stats 返回运行计数快照
func (w *Writer) Stats() Stats {
	return Stats{
		Appended:     w.stats.appended.Load(),
		Dropped:      w.stats.dropped.Load(),
		Flushes:      w.stats.flushes.Load(),
		FlushedBytes: w.stats.flushedBytes.Load(),
		FlushErrors:  w.stats.flushErrors.Load(),
		Fallbacks:    w.stats.fallbacks.Load(),
		Rotations:    w.stats.rotations.Load(),
		CompressJobs: w.stats.compressJobs.Load(),
	}
}

func (w *Writer) releaseSlot() {
	w.release.Do(func() { active.Store(false) })
}

// ============================================================================
// actor 处理
// ============================================================================

func (w *Writer) handle(m message) {
	switch m.kind {
	case msgAppend:
		w.appendLine(m.line)
	case msgFlush:
		w.flush(false)
	case msgForceFlush:
		w.flush(true)
	case msgRotate:
		w.rotate()
	case msgClose:
		w.closeFile(false)
	case msgShutdownClose:
		w.closeFile(true)
	case msgCompressionDone:
		w.compressionDone(m.err)
	}
}

func (w *Writer) appendLine(line []byte) {
	ctx := context.Background()
	if w.finished {
		w.stats.dropped.Add(1)
		return
	}
	if err := w.buf.Append(line); err != nil {
		dropped := w.stats.dropped.Add(1)
		xmetrics.Count(ctx, w.opts.observer, MetricLinesDropped, 1)
		if w.opts.dropSampler.ShouldSample(ctx) {
			w.opts.logger.Warn(ctx, "xlogwriter: buffer full, line dropped",
				xlog.Bytes(len(line)), slog.Int("buffered", w.buf.Len()),
				slog.Uint64("dropped_total", dropped))
		}
		return
	}
	w.stats.appended.Add(1)
	xmetrics.Count(ctx, w.opts.observer, MetricLinesAppended, 1)
	// 首行追加后 flushDelay 内必定 flush 一次，后续追加不推迟该截止时间
	w.loop.PostDelayedEarliest(keyFlush, w.opts.flushDelay, message{kind: msgFlush})
}

// flush 确保有可写文件，再按模式策略决定是否写入。
//
// 加密模式下未达阈值的非强制 flush 不写入，数据留在缓冲区等待下一次机会。
// 任何失败都保留缓冲区内容，下一次 flush 重试。
func (w *Writer) flush(force bool) {
	w.loop.CancelDelayed(keyFlush, keyClose)
	defer w.armIdleClose()

	ctx := context.Background()
	if err := w.seq.Ensure(); err != nil {
		w.flushFailed(ctx, "open", err)
		return
	}
	n := w.buf.Len()
	if n == 0 || (w.encrypted && !force && n <= w.threshold) {
		return
	}

	ctx, span := xmetrics.Start(ctx, w.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "flush",
		Attrs: []xmetrics.Attr{
			xmetrics.String("mode", w.enc.Mode().String()),
			xmetrics.Bool("force", force),
		},
	})
	err := w.writeBatch(ctx)
	span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Int("bytes", n)}})
}

func (w *Writer) writeBatch(ctx context.Context) error {
	batch := w.buf.Bytes()
	rec, err := w.enc.Encode(batch)
	if err != nil {
		w.flushFailed(ctx, "encrypt", err)
		return err
	}
	if rec.Fallback {
		w.stats.fallbacks.Add(1)
		xmetrics.Count(ctx, w.opts.observer, MetricCryptoFallback, 1)
		w.opts.logger.Error(ctx, "xlogwriter: encryption failed, batch written as plain frame",
			xlog.Err(rec.Cause), xlog.Bytes(len(batch)))
	}
	if _, err := w.seq.Write(rec.Bytes()); err != nil {
		w.flushFailed(ctx, "write", err)
		return err
	}

	w.stats.flushes.Add(1)
	w.stats.flushedBytes.Add(uint64(len(batch)))
	xmetrics.Count(ctx, w.opts.observer, MetricFlushBytes, int64(len(batch)),
		xmetrics.String("mode", rec.Mode.String()))
	w.buf.Reset()
	return nil
}

func (w *Writer) flushFailed(ctx context.Context, stage string, err error) {
	w.stats.flushErrors.Add(1)
	xmetrics.Count(ctx, w.opts.observer, MetricFlushErrors, 1, xmetrics.String("stage", stage))
	w.opts.logger.Error(ctx, "xlogwriter: flush failed",
		slog.String("stage", stage), xlog.Err(err), slog.Int("buffered", w.buf.Len()))
}

func (w *Writer) armIdleClose() {
	if w.opts.idleClose <= 0 || w.finished || !w.seq.IsOpen() {
		return
	}
	w.loop.PostDelayed(keyClose, w.opts.idleClose, message{kind: msgClose})
}

func (w *Writer) rotate() {
	w.flush(true)
	w.loop.CancelDelayed(keyClose)

	ctx := context.Background()
	prev := w.seq.Name()
	if err := w.seq.Rotate(); err != nil {
		w.opts.logger.Warn(ctx, "xlogwriter: close on rotate failed", xlog.File(prev), xlog.Err(err))
	}
	w.scanPending = true
	w.stats.rotations.Add(1)
	xmetrics.Count(ctx, w.opts.observer, MetricFileRotations, 1, xmetrics.String("reason", "manual"))
}

// closeFile 关闭当前文件。final 为 true 时来自 Shutdown，之后到达的日志行被丢弃。
func (w *Writer) closeFile(final bool) {
	if final {
		// Shutdown 的 force flush 之后、关闭之前到达的行在此写出
		if w.buf.Len() > 0 {
			w.flush(true)
		}
		w.loop.CancelDelayed(keyFlush, keyClose)
		w.finished = true
	}
	name := w.seq.Name()
	if err := w.seq.Close(); err != nil {
		w.opts.logger.Warn(context.Background(), "xlogwriter: close failed", xlog.File(name), xlog.Err(err))
	}
}

// fileCreated 在 actor goroutine 中由 Sequence 回调
func (w *Writer) fileCreated(ev xrotate.CreateEvent) {
	ctx := context.Background()
	w.opts.logger.Info(ctx, "xlogwriter: log file opened",
		xlog.File(ev.Name), slog.Int("seq", ev.Seq), slog.Bool("fresh", ev.Fresh))
	if ev.SizeRotated {
		w.stats.rotations.Add(1)
		xmetrics.Count(ctx, w.opts.observer, MetricFileRotations, 1, xmetrics.String("reason", "size"))
	}
	if ev.Fresh {
		w.scanPending = true
	}
	w.maybeCompress(ev.Name)
}

// maybeCompress 有待扫描标记且没有运行中的压缩任务时启动压缩，
// 否则保留标记等待下一次机会。
func (w *Writer) maybeCompress(exclude string) {
	if !w.scanPending || w.trigger.Active() {
		return
	}
	if !w.trigger.Start(w.seq.Dir(), exclude, w.compressionFinished) {
		return
	}
	w.scanPending = false
	w.stats.compressJobs.Add(1)
}

// compressionFinished 在压缩任务 goroutine 中执行，把结果交回 actor
func (w *Writer) compressionFinished(err error) {
	if !w.loop.Post(message{kind: msgCompressionDone, err: err}) {
		w.trigger.Done()
	}
}

func (w *Writer) compressionDone(err error) {
	w.trigger.Done()

	ctx := context.Background()
	status := xmetrics.StatusOK
	if err != nil {
		status = xmetrics.StatusError
		w.opts.logger.Warn(ctx, "xlogwriter: compression failed", xlog.Err(err))
	}
	xmetrics.Count(ctx, w.opts.observer, MetricCompressJobs, 1, xmetrics.String("status", string(status)))

	if name := w.seq.Name(); name != "" {
		w.maybeCompress(name)
	}
}
