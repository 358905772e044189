package xconf

import (
	"io"
	"time"

	"github.com/omeyang/xlogfile/pkg/logging/xbuffer"
	"github.com/omeyang/xlogfile/pkg/logging/xcompress"
	"github.com/omeyang/xlogfile/pkg/logging/xlogwriter"
	"github.com/omeyang/xlogfile/pkg/observability/xlog"
	"github.com/omeyang/xlogfile/pkg/observability/xrotate"
	"github.com/omeyang/xlogfile/pkg/observability/xsampling"
)

// Settings xlogfile 运行配置
type Settings struct {
	// Dir 日志目录
	Dir string `koanf:"dir" validate:"required,dirpath_ok"`

	// PublicKey 十六进制 PKIX RSA 公钥，为空时使用明文模式
	PublicKey string `koanf:"public_key" validate:"omitempty,hexadecimal"`

	// StrictEncryption 加密失败时不回退为明文帧
	StrictEncryption bool `koanf:"strict_encryption"`

	// BufferSize 缓冲区容量（字节）
	BufferSize int `koanf:"buffer_size" validate:"gt=0,lte=67108864"`

	// Threshold 加密模式刷盘阈值，0 表示容量的 1/4
	Threshold int `koanf:"threshold" validate:"gte=0,ltfield=BufferSize"`

	// FlushDelay 追加后延迟 flush 的时间
	FlushDelay time.Duration `koanf:"flush_delay" validate:"gte=0"`

	// IdleClose 空闲关闭文件的时间，0 表示不关闭
	IdleClose time.Duration `koanf:"idle_close" validate:"gte=0"`

	// MaxFileSize 单个日志文件大小上限（字节）
	MaxFileSize int64 `koanf:"max_file_size" validate:"gt=0"`

	// LegacyNames 文件名日期不补零
	LegacyNames bool `koanf:"legacy_names"`

	// DropLogInterval 丢行诊断日志的最小间隔，0 表示每次丢行都记录
	DropLogInterval time.Duration `koanf:"drop_log_interval" validate:"gte=0"`

	Compression CompressionSettings `koanf:"compression"`
	Log         LogSettings         `koanf:"log"`
}

// CompressionSettings 历史日志压缩配置
type CompressionSettings struct {
	Enabled    bool `koanf:"enabled"`
	Workers    int  `koanf:"workers" validate:"gte=1,lte=64"`
	Level      int  `koanf:"level" validate:"gte=-2,lte=9"`
	KeepSource bool `koanf:"keep_source"`
}

// LogSettings 诊断日志配置（Writer 自身的事件，不是被写入的日志行）
type LogSettings struct {
	Level  string `koanf:"level" validate:"loglevel"`
	Format string `koanf:"format" validate:"oneof=text json"`

	// File 诊断日志文件，为空时输出到 stderr
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
}

// DefaultSettings 内置默认值
var DefaultSettings = Settings{
	Dir:         "./logs",
	BufferSize:  xbuffer.DefaultCapacity,
	FlushDelay:  xlogwriter.DefaultFlushDelay,
	MaxFileSize: xrotate.DefaultMaxFileSize,
	Compression: CompressionSettings{
		Enabled: true,
		Workers: xcompress.DefaultWorkers,
		Level:   -1,
	},
	Log: LogSettings{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  5,
		MaxBackups: 3,
	},
}

// WriterOptions 把配置转换为 xlogwriter 选项。diag 非 nil 时作为诊断日志记录器。
func (s *Settings) WriterOptions(diag xlog.Logger) []xlogwriter.Option {
	opts := []xlogwriter.Option{
		xlogwriter.WithDir(s.Dir),
		xlogwriter.WithPublicKeyHex(s.PublicKey),
		xlogwriter.WithBufferSize(s.BufferSize),
		xlogwriter.WithThreshold(s.Threshold),
		xlogwriter.WithFlushDelay(s.FlushDelay),
		xlogwriter.WithIdleClose(s.IdleClose),
		xlogwriter.WithMaxFileSize(s.MaxFileSize),
	}
	if s.StrictEncryption {
		opts = append(opts, xlogwriter.WithStrictEncryption())
	}
	if s.LegacyNames {
		opts = append(opts, xlogwriter.WithLegacyNames())
	}
	if diag != nil {
		opts = append(opts, xlogwriter.WithLogger(diag))
	}
	if s.DropLogInterval > 0 {
		if sampler, err := xsampling.NewIntervalSampler(s.DropLogInterval); err == nil {
			opts = append(opts, xlogwriter.WithDropSampler(sampler))
		}
	}

	if !s.Compression.Enabled {
		return append(opts, xlogwriter.WithoutCompression())
	}
	zipOpts := []xcompress.ZipOption{
		xcompress.WithWorkers(s.Compression.Workers),
		xcompress.WithLevel(s.Compression.Level),
	}
	if s.Compression.KeepSource {
		zipOpts = append(zipOpts, xcompress.WithKeepSource())
	}
	if diag != nil {
		zipOpts = append(zipOpts, xcompress.WithLogger(xlog.Slog(diag)))
	}
	return append(opts, xlogwriter.WithCompressor(xcompress.NewZipCompressor(zipOpts...)))
}

// NewLogger 按配置构建诊断日志记录器。File 为空时输出到 out。
func (l LogSettings) NewLogger(out io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetLevelString(l.Level).
		SetFormat(l.Format).
		SetAttrs(xlog.Component("xlogfile"))
	if l.File != "" {
		b = b.SetRotation(l.File,
			xrotate.WithMaxSize(l.MaxSizeMB),
			xrotate.WithMaxBackups(l.MaxBackups),
		)
	} else {
		b = b.SetOutput(out)
	}
	return b.Build()
}
