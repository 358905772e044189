package xcompress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/omeyang/xlogfile/pkg/util/xfile"
	"github.com/omeyang/xlogfile/pkg/util/xpool"
)

const (
	// DefaultWorkers 默认并发压缩的文件数
	DefaultWorkers = 2

	tmpSuffix = ".tmp"
)

var _ Compressor = (*ZipCompressor)(nil)

// ZipOption ZipCompressor 配置选项
type ZipOption func(*ZipCompressor)

// WithWorkers 设置并发压缩的文件数
func WithWorkers(n int) ZipOption {
	return func(z *ZipCompressor) {
		if n > 0 {
			z.workers = n
		}
	}
}

// WithLevel 设置 Deflate 压缩级别（flate.BestSpeed ~ flate.BestCompression）
func WithLevel(level int) ZipOption {
	return func(z *ZipCompressor) {
		z.level = level
	}
}

// WithKeepSource 压缩后保留原始 ".log" 文件
func WithKeepSource() ZipOption {
	return func(z *ZipCompressor) {
		z.keepSource = true
	}
}

// WithLogger 设置日志记录器，用于记录单个文件的压缩结果
func WithLogger(logger *slog.Logger) ZipOption {
	return func(z *ZipCompressor) {
		if logger != nil {
			z.logger = logger
		}
	}
}

// ZipCompressor 把每个未归档的 ".log" 压缩为同名 ".zip"。
//
// 压缩先写入 "<stem>.zip.tmp"，Sync 后重命名，归档出现即代表内容完整。
type ZipCompressor struct {
	workers    int
	level      int
	keepSource bool
	logger     *slog.Logger
}

// NewZipCompressor 创建 ZipCompressor
func NewZipCompressor(opts ...ZipOption) *ZipCompressor {
	z := &ZipCompressor{
		workers: DefaultWorkers,
		level:   flate.DefaultCompression,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(z)
		}
	}
	return z
}

// Compress 实现 Compressor 接口。各文件的错误合并返回。
func (z *ZipCompressor) Compress(ctx context.Context, dir, exclude string) error {
	if dir == "" {
		return ErrEmptyDir
	}
	names, err := xfile.ListUncompressed(dir, exclude)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	// worker 与提交方都会记录错误
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	pool, err := xpool.NewWorkerPool(min(z.workers, len(names)), len(names), func(name string) {
		if err := z.compressFile(ctx, dir, name); err != nil {
			record(err)
			return
		}
		z.logger.Debug("xcompress: archived", slog.String("file", name))
	}, xpool.WithLogger(z.logger), xpool.WithName("xcompress"))
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := pool.Submit(name); err != nil {
			record(fmt.Errorf("xcompress: submit %s: %w", name, err))
		}
	}
	if err := pool.Close(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (z *ZipCompressor) compressFile(ctx context.Context, dir, name string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcPath, err := xfile.JoinName(dir, name)
	if err != nil {
		return err
	}
	dstPath, err := xfile.JoinName(dir, xfile.ZipName(name))
	if err != nil {
		return err
	}
	tmpPath := dstPath + tmpSuffix

	//#nosec G304 -- 文件名来自目录扫描并经 JoinName 校验
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("xcompress: open %s: %w", name, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("xcompress: stat %s: %w", name, err)
	}

	//#nosec G304 -- 同上
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("xcompress: create %s: %w", tmpPath, err)
	}
	defer func() {
		if err != nil {
			_ = dst.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(dst)
	level := z.level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	hdr.SetMode(0o640)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("xcompress: zip header %s: %w", name, err)
	}
	if _, err = io.Copy(w, &ctxReader{ctx: ctx, r: src}); err != nil {
		return fmt.Errorf("xcompress: zip %s: %w", name, err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("xcompress: zip close %s: %w", name, err)
	}
	if err = dst.Sync(); err != nil {
		return fmt.Errorf("xcompress: sync %s: %w", tmpPath, err)
	}
	if err = dst.Close(); err != nil {
		return fmt.Errorf("xcompress: close %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, dstPath); err != nil {
		return fmt.Errorf("xcompress: rename %s: %w", tmpPath, err)
	}

	if z.keepSource {
		return nil
	}
	if rmErr := os.Remove(srcPath); rmErr != nil {
		// 归档已完整，源文件残留只会在下一次扫描时因 .zip 存在而被跳过
		z.logger.Warn("xcompress: remove source failed",
			slog.String("file", name), slog.Any("error", rmErr))
	}
	return nil
}

// ctxReader 在每次 Read 前检查 ctx，使大文件压缩可被取消
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
