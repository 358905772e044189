package xframe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Mode 帧模式，即加密帧中的 mode 字节
type Mode byte

const (
	// ModePlain 明文（明文模式的原样输出，或加密帧的回退）
	ModePlain Mode = 0

	// ModeEncrypted RSA + AES-CBC 混合加密
	ModeEncrypted Mode = 1
)

// String 返回模式名称
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeEncrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("Mode(%d)", byte(m))
	}
}

const (
	// KeySize AES 密钥长度
	KeySize = 16

	// IVSize AES-CBC IV 长度
	IVSize = 16

	// HeaderSize 加密帧头长度：4 字节长度 + 1 字节 mode
	HeaderSize = 5

	// DefaultRSABlockSize 默认 RSA 密文块长度（2048 位密钥）
	DefaultRSABlockSize = 256
)

// Record 一次 flush 产生的磁盘记录
type Record struct {
	// Mode 实际写入的模式。加密编码器回退时为 ModePlain。
	Mode Mode

	// Framed 是否带帧头（加密编码器产生的记录总是带帧头）
	Framed bool

	// Fallback 加密失败、明文以 mode=0 写入
	Fallback bool

	// PayloadLen 帧头中的长度字段（密文或回退明文长度）
	PayloadLen int

	// Cause 回退原因，仅 Fallback 为 true 时非 nil
	Cause error

	data []byte
}

// Bytes 返回完整的记录字节
func (r Record) Bytes() []byte { return r.data }

// Len 返回记录总长度
func (r Record) Len() int { return len(r.data) }

// Option 编码器配置选项
type Option func(*Encoder)

// WithStrictEncryption 加密失败时返回 ErrEncryption，而不是回退为明文帧。
func WithStrictEncryption() Option {
	return func(e *Encoder) {
		e.strict = true
	}
}

// WithRSABlockSize 设置回退时 encIV/encKey 占位块的长度。
//
// 默认取 Cipher 的 RSABlockSize()（若实现了 BlockSizer），否则为 DefaultRSABlockSize。
func WithRSABlockSize(n int) Option {
	return func(e *Encoder) {
		e.blockSize = n
	}
}

// Encoder 帧编码器。无内部可变状态，可被并发使用。
type Encoder struct {
	encrypted bool
	cipher    Cipher
	blockSize int
	strict    bool
}

// NewPlainEncoder 创建明文编码器。
func NewPlainEncoder() *Encoder {
	return &Encoder{}
}

// NewEncryptedEncoder 创建加密编码器。
func NewEncryptedEncoder(c Cipher, opts ...Option) (*Encoder, error) {
	if c == nil {
		return nil, ErrNilCipher
	}
	e := &Encoder{
		encrypted: true,
		cipher:    c,
		blockSize: DefaultRSABlockSize,
	}
	if bs, ok := c.(BlockSizer); ok {
		e.blockSize = bs.RSABlockSize()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, e.blockSize)
	}
	return e, nil
}

// Mode 返回编码器的配置模式（写入器生命周期内固定）
func (e *Encoder) Mode() Mode {
	if e.encrypted {
		return ModeEncrypted
	}
	return ModePlain
}

// Encode 编码一批数据。
//
// batch 在返回后不再被引用，调用方可以复用其底层数组。
// 明文模式返回的记录除外：为避免拷贝，明文记录直接引用 batch。
func (e *Encoder) Encode(batch []byte) (Record, error) {
	if !e.encrypted {
		return Record{Mode: ModePlain, PayloadLen: len(batch), data: batch}, nil
	}

	rec, err := e.encrypt(batch)
	if err == nil {
		return rec, nil
	}
	if e.strict {
		return Record{}, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	return e.fallback(batch, err), nil
}

// encrypt 生成新的密钥材料并完成混合加密
func (e *Encoder) encrypt(batch []byte) (Record, error) {
	key, err := e.cipher.RandomBytes(KeySize)
	if err != nil {
		return Record{}, fmt.Errorf("generate key: %w", err)
	}
	iv, err := e.cipher.RandomBytes(IVSize)
	if err != nil {
		return Record{}, fmt.Errorf("generate iv: %w", err)
	}
	if len(key) != KeySize || len(iv) != IVSize {
		return Record{}, ErrInvalidKeySize
	}

	ciphertext, err := e.cipher.EncryptAESCBC(batch, key, iv)
	if err != nil {
		return Record{}, fmt.Errorf("aes: %w", err)
	}
	encIV, err := e.cipher.EncryptRSA(iv)
	if err != nil {
		return Record{}, fmt.Errorf("rsa iv: %w", err)
	}
	encKey, err := e.cipher.EncryptRSA(key)
	if err != nil {
		return Record{}, fmt.Errorf("rsa key: %w", err)
	}
	if len(encIV) != len(encKey) {
		return Record{}, errors.New("rsa: iv and key ciphertext length mismatch")
	}

	return Record{
		Mode:       ModeEncrypted,
		Framed:     true,
		PayloadLen: len(ciphertext),
		data:       frame(ModeEncrypted, encIV, encKey, ciphertext),
	}, nil
}

// fallback 以 mode=0 写入原始明文，密钥位置填零
//
// 设计决策: 保持与加密帧相同的结构（长度前缀 + mode + 两个 RSA 块），
// 读取方按 mode 字节区分，无需感知回退。代价是该批日志未加密，
// 调用方通过 Record.Fallback 记录并上报。
func (e *Encoder) fallback(batch []byte, cause error) Record {
	placeholder := make([]byte, e.blockSize)
	return Record{
		Mode:       ModePlain,
		Framed:     true,
		Fallback:   true,
		PayloadLen: len(batch),
		Cause:      cause,
		data:       frame(ModePlain, placeholder, placeholder, batch),
	}
}

// frame 拼接帧：len | mode | encIV | encKey | payload
func frame(mode Mode, encIV, encKey, payload []byte) []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(encIV)+len(encKey)+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload)))
	out[4] = byte(mode)
	out = append(out, encIV...)
	out = append(out, encKey...)
	return append(out, payload...)
}
