package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xlogfile/pkg/config/xconf"
	"github.com/omeyang/xlogfile/pkg/lifecycle/xrun"
	"github.com/omeyang/xlogfile/pkg/logging/xlogwriter"
	"github.com/omeyang/xlogfile/pkg/observability/xlog"
)

const (
	// defaultKeyBits keygen 默认密钥长度
	defaultKeyBits = 2048
	// minKeyBits 低于该长度的 RSA 密钥不再安全
	minKeyBits = 2048
)

// errInputClosed 输入结束，用于让服务组有序退出。
var errInputClosed = errors.New("xlogctl: input closed")

// usageError 表示参数错误（退出码 2）。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// isCLIUsageError 判断 urfave/cli 产生的参数解析错误。
func isCLIUsageError(err error) bool {
	if _, ok := err.(cli.ExitCoder); ok {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"Required flag",
		"No help topic for",
		"invalid value",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createPipeCommand(),
		createKeygenCommand(),
	}
}

// createPipeCommand 创建 pipe 子命令。
func createPipeCommand() *cli.Command {
	return &cli.Command{
		Name:    "pipe",
		Aliases: []string{"p"},
		Usage:   "从 stdin 逐行读取并写入日志目录，输入结束或收到信号时刷盘退出",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "level",
				Aliases: []string{"l"},
				Usage:   "写入行的级别 (debug/info/warn/error)",
				Value:   "info",
			},
			&cli.DurationFlag{
				Name:  "rotate-every",
				Usage: "周期性刷盘并切换到新文件，0 表示不切换",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level, err := xlog.ParseLevel(cmd.String("level"))
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			rotateEvery := cmd.Duration("rotate-every")
			if rotateEvery < 0 {
				return &usageError{msg: "--rotate-every 不能为负数"}
			}
			return cmdPipe(ctx, pipeConfig{
				configPath:  cmd.String("config"),
				dir:         cmd.String("dir"),
				level:       level,
				rotateEvery: rotateEvery,
				in:          os.Stdin,
				errOut:      os.Stderr,
			})
		},
	}
}

// createKeygenCommand 创建 keygen 子命令。
func createKeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "生成 RSA 密钥对：stdout 输出十六进制 PKIX 公钥，私钥以 PKCS#8 PEM 写入 --out",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "私钥输出路径（文件不能已存在）",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "bits",
				Usage: "RSA 密钥长度",
				Value: defaultKeyBits,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdKeygen(os.Stdout, cmd.String("out"), int(cmd.Int("bits")))
		},
	}
}

// =============================================================================
// pipe
// =============================================================================

type pipeConfig struct {
	configPath  string
	dir         string
	level       xlog.Level
	rotateEvery time.Duration
	in          io.Reader
	errOut      io.Writer
	runOpts     []xrun.Option
}

// cmdPipe 运行 pipe 命令。
//
// 服务组包含 Writer、输入读取与可选的轮转 Ticker；任一服务退出即取消其余服务，
// Writer 在退出前强制刷盘。输入结束与收到信号都视为正常退出。
func cmdPipe(ctx context.Context, cfg pipeConfig) error {
	s, err := loadSettings(cfg.configPath, cfg.dir)
	if err != nil {
		return err
	}

	diag, closeDiag, err := s.Log.NewLogger(cfg.errOut)
	if err != nil {
		return fmt.Errorf("build diagnostics logger: %w", err)
	}
	defer func() { _ = closeDiag() }()

	w, err := xlogwriter.New(s.WriterOptions(diag)...)
	if err != nil {
		return err
	}

	if cfg.configPath != "" {
		stop, err := watchLevel(ctx, cfg.configPath, diag)
		if err != nil {
			_ = w.Shutdown(ctx)
			return err
		}
		defer stop()
	}

	services := []xrun.Service{
		w,
		xrun.ServiceFunc(readLines(cfg.in, w, cfg.level, s.BufferSize, diag)),
	}
	if cfg.rotateEvery > 0 {
		services = append(services, xrun.ServiceFunc(xrun.Ticker(cfg.rotateEvery, false,
			func(context.Context) error {
				w.FlushAndRotate()
				return nil
			})))
	}

	diag.Info(ctx, "pipe started",
		slog.String("dir", w.Dir()),
		slog.String("mode", w.Mode().String()),
	)
	opts := append([]xrun.Option{xrun.WithName("xlogctl"), xrun.WithLogger(diag)}, cfg.runOpts...)
	err = xrun.RunServicesWithOptions(ctx, opts, services...)

	st := w.Stats()
	diag.Info(context.Background(), "pipe stopped",
		slog.Uint64("appended", st.Appended),
		slog.Uint64("dropped", st.Dropped),
		slog.Uint64("flushes", st.Flushes),
	)

	var sigErr *xrun.SignalError
	if errors.Is(err, errInputClosed) || errors.As(err, &sigErr) {
		return nil
	}
	return err
}

// loadSettings 加载配置，dir 非空时覆盖 Settings.Dir 并重新校验。
func loadSettings(path, dir string) (*xconf.Settings, error) {
	var opts []xconf.LoadOption
	if path != "" {
		opts = append(opts, xconf.WithFile(path))
	}
	s, err := xconf.Load(opts...)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return s, nil
	}
	s.Dir = dir
	if err := xconf.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// watchLevel 监视配置文件，变更时更新诊断日志级别。返回停止函数。
func watchLevel(ctx context.Context, path string, diag xlog.LoggerWithLevel) (func(), error) {
	watcher, err := xconf.Watch(path, func(s *xconf.Settings, err error) {
		if err != nil {
			diag.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		level, err := xlog.ParseLevel(s.Log.Level)
		if err != nil {
			return
		}
		diag.SetLevel(level)
		diag.Info(ctx, "diagnostics level changed", slog.String("level", level.String()))
	})
	if err != nil {
		return nil, err
	}
	watcher.StartAsync()
	return func() {
		_ = watcher.Stop()
		watcher.Wait()
	}, nil
}

// readLines 返回逐行读取 in 并提交到 w 的服务函数。
//
// 输入结束时返回 errInputClosed。maxLine 为单行上限：超长行即使提交也会因超出
// 缓冲区容量被丢弃，因此读取时直接跳过并记录告警，后续行照常处理。
// 读取在独立 goroutine 中进行：阻塞的 Read 无法被 ctx 中断，服务本身仍能及时返回。
func readLines(in io.Reader, w *xlogwriter.Writer, level xlog.Level, maxLine int, diag xlog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		lines := make(chan string)
		errc := make(chan error, 1)
		go func() {
			errc <- scanLines(ctx, bufio.NewReaderSize(in, min(maxLine, 4096)), maxLine, lines, func(n int) {
				diag.Warn(ctx, "input line too long, skipped",
					slog.Int("length", n),
					slog.Int("max", maxLine),
				)
			})
		}()

		for {
			select {
			case line := <-lines:
				w.Submit(level, line)
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return errInputClosed
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// scanLines 按行读取 r 并发送到 lines，去掉行尾的 \n 与 \r。
// 超过 maxLine 的行不发送，改为以其长度调用 skip。EOF 时返回 nil。
func scanLines(ctx context.Context, r *bufio.Reader, maxLine int, lines chan<- string, skip func(n int)) error {
	var (
		line     []byte
		overlong bool
		length   int
	)
	for {
		frag, err := r.ReadSlice('\n')
		length += len(frag)
		if !overlong {
			line = append(line, frag...)
			if len(bytes.TrimRight(line, "\r\n")) > maxLine {
				overlong = true
				line = line[:0]
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		switch {
		case overlong:
			skip(length)
		case len(line) > 0:
			text := string(bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r")))
			select {
			case lines <- text:
			case <-ctx.Done():
				return nil
			}
		}
		line, overlong, length = line[:0], false, 0

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// =============================================================================
// keygen
// =============================================================================

// cmdKeygen 生成 RSA 密钥对。私钥文件以 0600 权限创建，已存在时报错而不覆盖。
func cmdKeygen(out io.Writer, path string, bits int) error {
	if path == "" {
		return &usageError{msg: "--out 不能为空"}
	}
	if bits < minKeyBits {
		return &usageError{msg: fmt.Sprintf("--bits 不能小于 %d", minKeyBits)}
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("marshal public key: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if err := pem.Encode(f, &pem.Block{Type: "PRIVATE KEY", Bytes: der}); err != nil {
		return errors.Join(fmt.Errorf("write key file: %w", err), f.Close())
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}

	_, err = fmt.Fprintln(out, hex.EncodeToString(pub))
	return err
}
