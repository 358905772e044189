package xlogwriter

import (
	"time"

	"github.com/omeyang/xlogfile/pkg/logging/xbuffer"
	"github.com/omeyang/xlogfile/pkg/logging/xcompress"
	"github.com/omeyang/xlogfile/pkg/logging/xframe"
	"github.com/omeyang/xlogfile/pkg/observability/xlog"
	"github.com/omeyang/xlogfile/pkg/observability/xmetrics"
	"github.com/omeyang/xlogfile/pkg/observability/xrotate"
	"github.com/omeyang/xlogfile/pkg/observability/xsampling"
)

const (
	// DefaultFlushDelay 追加后延迟 flush 的默认时间
	DefaultFlushDelay = 500 * time.Millisecond

	// DefaultShutdownTimeout Run 在 ctx 取消后等待 Shutdown 的默认时间
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultTimestampLayout 日志行时间戳格式
	DefaultTimestampLayout = "01-02 15:04:05.000"
)

// Option Writer 配置选项
type Option func(*options)

type options struct {
	dir             string
	publicKeyHex    string
	cipher          xframe.Cipher
	strict          bool
	bufferSize      int
	threshold       int
	flushDelay      time.Duration
	idleClose       time.Duration
	maxFileSize     int64
	legacyNames     bool
	compressor      xcompress.Compressor
	logger          xlog.Logger
	observer        xmetrics.Observer
	dropSampler     xsampling.Sampler
	now             func() time.Time
	timestampLayout string
	shutdownTimeout time.Duration
}

func defaultOptions() options {
	return options{
		bufferSize:      xbuffer.DefaultCapacity,
		flushDelay:      DefaultFlushDelay,
		maxFileSize:     xrotate.DefaultMaxFileSize,
		logger:          xlog.Discard(),
		observer:        xmetrics.NoopObserver{},
		dropSampler:     xsampling.Always(),
		now:             time.Now,
		timestampLayout: DefaultTimestampLayout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// WithDir 设置日志目录（必填）
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithPublicKeyHex 启用加密模式，参数为十六进制编码的 PKIX DER RSA 公钥。
// 空字符串表示明文模式。
func WithPublicKeyHex(hexKey string) Option {
	return func(o *options) {
		o.publicKeyHex = hexKey
	}
}

// WithCipher 使用自定义加密原语启用加密模式，优先于 WithPublicKeyHex
func WithCipher(c xframe.Cipher) Option {
	return func(o *options) {
		o.cipher = c
	}
}

// WithStrictEncryption 加密失败时保留缓冲区数据并放弃本次写入，
// 而不是以 mode=0 写入明文帧。
func WithStrictEncryption() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithBufferSize 设置缓冲区容量（字节）
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithThreshold 设置加密模式的刷盘阈值，缓冲区长度严格大于阈值时才写入。
// 0 表示取缓冲区容量的 1/4。
func WithThreshold(n int) Option {
	return func(o *options) {
		o.threshold = n
	}
}

// WithFlushDelay 设置追加后延迟 flush 的时间
func WithFlushDelay(d time.Duration) Option {
	return func(o *options) {
		o.flushDelay = d
	}
}

// WithIdleClose 在最后一次 flush 之后空闲 d 时关闭文件句柄，下一次写入时
// 重新打开并追加到同一文件。0 表示不关闭。
func WithIdleClose(d time.Duration) Option {
	return func(o *options) {
		o.idleClose = d
	}
}

// WithMaxFileSize 设置单个文件大小上限
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.maxFileSize = n
	}
}

// WithLegacyNames 文件名日期不补零
func WithLegacyNames() Option {
	return func(o *options) {
		o.legacyNames = true
	}
}

// WithCompressor 设置历史日志压缩器，默认为 xcompress.ZipCompressor
func WithCompressor(c xcompress.Compressor) Option {
	return func(o *options) {
		o.compressor = c
	}
}

// WithoutCompression 关闭历史日志压缩
func WithoutCompression() Option {
	return func(o *options) {
		o.compressor = xcompress.Nop
	}
}

// WithLogger 设置诊断日志记录器（记录 Writer 自身的事件，而非被写入的日志行）
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置指标与追踪观测器
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithDropSampler 设置丢行诊断日志的采样器，默认每次丢行都记录。
// 丢行计数与指标不受采样影响。
func WithDropSampler(s xsampling.Sampler) Option {
	return func(o *options) {
		if s != nil {
			o.dropSampler = s
		}
	}
}

// WithClock 设置时钟，用于行时间戳与文件名日期
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTimestampLayout 设置行时间戳格式（time.Layout 语法）
func WithTimestampLayout(layout string) Option {
	return func(o *options) {
		if layout != "" {
			o.timestampLayout = layout
		}
	}
}

// WithShutdownTimeout 设置 Run 退出时 Shutdown 的等待时间
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}
