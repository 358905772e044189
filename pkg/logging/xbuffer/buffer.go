package xbuffer

import "fmt"

// DefaultCapacity 默认缓冲区容量（16 KiB）
const DefaultCapacity = 16 * 1024

// Buffer 固定容量字节缓冲区
//
// 写游标 pos 满足 0 <= pos <= Cap()。非并发安全。
type Buffer struct {
	buf []byte
}

// New 创建指定容量的缓冲区。
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{buf: make([]byte, 0, capacity)}, nil
}

// Append 追加数据。
//
// 仅当剩余空间严格大于 len(p) 时接受，否则返回 [ErrOverflow] 且缓冲区不变。
func (b *Buffer) Append(p []byte) error {
	if b.Free() <= len(p) {
		return fmt.Errorf("%w: need %d bytes, free %d", ErrOverflow, len(p), b.Free())
	}
	b.buf = append(b.buf, p...)
	return nil
}

// Len 返回已缓冲的字节数。
func (b *Buffer) Len() int { return len(b.buf) }

// Cap 返回缓冲区容量。
func (b *Buffer) Cap() int { return cap(b.buf) }

// Free 返回剩余空间。
func (b *Buffer) Free() int { return cap(b.buf) - len(b.buf) }

// Bytes 返回已缓冲内容的视图。
//
// 返回的切片与缓冲区共享底层数组，仅在下一次 Append/Reset 之前有效。
func (b *Buffer) Bytes() []byte { return b.buf }

// Reset 清空缓冲区，保留容量。
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// Drain 拷贝出全部内容并清空缓冲区。
func (b *Buffer) Drain() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	b.Reset()
	return out
}
