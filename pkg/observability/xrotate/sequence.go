package xrotate

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/omeyang/xlogfile/pkg/util/xfile"
)

const (
	// DefaultMaxFileSize 单个日志文件的默认大小上限（10 MiB）
	DefaultMaxFileSize int64 = 10 << 20

	// EncryptedPrefix 加密日志文件名前缀。
	// 模式在两次运行之间变化时，明文与加密记录不会写入同一文件。
	EncryptedPrefix = "s_"

	// DefaultFileMode 日志文件默认权限
	DefaultFileMode os.FileMode = 0o640
)

// CreateEvent 日志文件打开事件
type CreateEvent struct {
	// Dir 日志目录
	Dir string

	// Name 文件名（不含目录）
	Name string

	// Seq 文件序号
	Seq int

	// Fresh 文件为本次新建；false 表示追加到已存在的同名文件
	Fresh bool

	// SizeRotated 因上一个文件超过大小上限而打开
	SizeRotated bool
}

// SequenceOption Sequence 配置选项
type SequenceOption func(*sequenceConfig)

type sequenceConfig struct {
	prefix   string
	maxSize  int64
	legacy   bool
	fileMode os.FileMode
	now      func() time.Time
	onCreate func(CreateEvent)
}

// WithPrefix 设置文件名前缀，加密模式使用 [EncryptedPrefix]
func WithPrefix(prefix string) SequenceOption {
	return func(c *sequenceConfig) {
		c.prefix = prefix
	}
}

// WithMaxFileSize 设置单个文件大小上限（字节）。
// 当前文件长度严格大于上限时，下一次写入前切换到新文件。
func WithMaxFileSize(n int64) SequenceOption {
	return func(c *sequenceConfig) {
		c.maxSize = n
	}
}

// WithLegacyNames 使用不补零的日期格式（"2024-1-2-3.log"），
// 与早期安装产生的文件名保持一致。
func WithLegacyNames() SequenceOption {
	return func(c *sequenceConfig) {
		c.legacy = true
	}
}

// WithSequenceFileMode 设置新建日志文件的权限
func WithSequenceFileMode(mode os.FileMode) SequenceOption {
	return func(c *sequenceConfig) {
		if mode != 0 {
			c.fileMode = mode
		}
	}
}

// WithClock 设置文件名日期使用的时钟
func WithClock(now func() time.Time) SequenceOption {
	return func(c *sequenceConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOnCreate 设置文件打开回调。
//
// 回调在 Write/Ensure 的调用方 goroutine 中、锁释放之后执行，可以安全地调用
// Sequence 的只读方法。回调 panic 被隔离。
func WithOnCreate(fn func(CreateEvent)) SequenceOption {
	return func(c *sequenceConfig) {
		c.onCreate = fn
	}
}

// Sequence 按日期与序号命名的日志文件序列。
//
// 同一时刻最多打开一个文件。文件在首次写入时才创建，目录在每次创建时
// 重新确保存在，因此目录暂时不可用时后续写入会自动重试。
type Sequence struct {
	dir string
	cfg sequenceConfig

	mu      sync.Mutex
	file    *os.File
	name    string
	size    int64
	current int
	next    int
}

// NewSequence 创建日志文件序列，序号从 0 开始。不会立即创建文件。
func NewSequence(dir string, opts ...SequenceOption) (*Sequence, error) {
	if dir == "" {
		return nil, ErrEmptyDir
	}
	cfg := sequenceConfig{
		maxSize:  DefaultMaxFileSize,
		fileMode: DefaultFileMode,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxSize, cfg.maxSize)
	}
	if cfg.prefix != "" {
		if err := xfile.CheckName(cfg.prefix); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPrefix, err)
		}
	}
	return &Sequence{dir: dir, cfg: cfg}, nil
}

// Dir 返回日志目录
func (s *Sequence) Dir() string { return s.dir }

// Name 返回当前打开的文件名，未打开时返回空字符串
func (s *Sequence) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Size 返回当前文件长度
func (s *Sequence) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Next 返回下一次创建时使用的候选序号
func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// IsOpen 报告是否有打开的文件
func (s *Sequence) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

// FileName 返回给定日期与序号对应的文件名
func (s *Sequence) FileName(t time.Time, seq int) string {
	if s.cfg.legacy {
		return fmt.Sprintf("%s%d-%d-%d-%d.log", s.cfg.prefix, t.Year(), int(t.Month()), t.Day(), seq)
	}
	return fmt.Sprintf("%s%04d-%02d-%02d-%d.log", s.cfg.prefix, t.Year(), int(t.Month()), t.Day(), seq)
}

// Ensure 确保有可写的文件：未打开或当前文件超过大小上限时打开下一个文件。
func (s *Sequence) Ensure() error {
	s.mu.Lock()
	ev, err := s.ensureLocked()
	s.mu.Unlock()
	s.emit(ev)
	return err
}

// Write 写入一条完整记录并 Sync。
//
// 写入或 Sync 失败时静默关闭当前文件，序号保持 current+1，
// 下一次写入打开新文件，避免在半截记录之后继续追加。
func (s *Sequence) Write(p []byte) (int, error) {
	s.mu.Lock()
	ev, err := s.ensureLocked()
	if err != nil {
		s.mu.Unlock()
		s.emit(ev)
		return 0, err
	}
	n, err := s.file.Write(p)
	s.size += int64(n)
	if err == nil {
		err = s.file.Sync()
	}
	if err != nil {
		err = fmt.Errorf("xrotate: write %s: %w", s.name, err)
		s.dropLocked()
	}
	s.mu.Unlock()
	s.emit(ev)
	return n, err
}

// Close 关闭当前文件。幂等。
//
// 关闭后 next = current，再次写入时重新打开并追加到同一文件。
func (s *Sequence) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.name = ""
	s.size = 0
	s.next = s.current
	if err != nil {
		return fmt.Errorf("xrotate: close: %w", err)
	}
	return nil
}

// Rotate 关闭当前文件并推进序号，下一次写入创建新文件。
// 未打开文件时只推进序号。
func (s *Sequence) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		s.next++
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.name = ""
	s.size = 0
	s.next = s.current + 1
	if err != nil {
		return fmt.Errorf("xrotate: close: %w", err)
	}
	return nil
}

func (s *Sequence) ensureLocked() (*CreateEvent, error) {
	sizeRotated := false
	if s.file != nil {
		if s.size <= s.cfg.maxSize {
			return nil, nil
		}
		s.dropLocked()
		sizeRotated = true
	}
	return s.openLocked(sizeRotated)
}

// openLocked 打开下一个文件。失败时序号不变。
func (s *Sequence) openLocked(sizeRotated bool) (*CreateEvent, error) {
	if err := xfile.EnsureDirPath(s.dir); err != nil {
		return nil, fmt.Errorf("xrotate: create dir: %w", err)
	}

	now := s.cfg.now()
	seq := s.next
	var name, path string
	for {
		name = s.FileName(now, seq)
		zipPath, err := xfile.JoinName(s.dir, xfile.ZipName(name))
		if err != nil {
			return nil, err
		}
		archived, err := xfile.Exists(zipPath)
		if err != nil {
			return nil, fmt.Errorf("xrotate: stat %s: %w", zipPath, err)
		}
		if !archived {
			path, err = xfile.JoinName(s.dir, name)
			if err != nil {
				return nil, err
			}
			break
		}
		seq++
	}

	//#nosec G304 -- 文件名由 FileName 生成并经 JoinName 校验
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, s.cfg.fileMode)
	fresh := err == nil
	if errors.Is(err, os.ErrExist) {
		//#nosec G304 -- 同上
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, s.cfg.fileMode)
	}
	if err != nil {
		return nil, fmt.Errorf("xrotate: open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xrotate: stat %s: %w", name, err)
	}

	s.file = f
	s.name = name
	s.size = info.Size()
	s.current = seq
	s.next = seq + 1
	return &CreateEvent{
		Dir:         s.dir,
		Name:        name,
		Seq:         seq,
		Fresh:       fresh,
		SizeRotated: sizeRotated,
	}, nil
}

// dropLocked 静默关闭当前文件，不调整序号
func (s *Sequence) dropLocked() {
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = nil
	s.name = ""
	s.size = 0
}

func (s *Sequence) emit(ev *CreateEvent) {
	if ev == nil || s.cfg.onCreate == nil {
		return
	}
	defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
	s.cfg.onCreate(*ev)
}
