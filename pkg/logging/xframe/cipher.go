package xframe

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
)

// Cipher 加密原语适配器。
//
// 日志写入路径只消费这三个操作，不关心其实现。
type Cipher interface {
	// RandomBytes 返回 n 个密码学安全的随机字节
	RandomBytes(n int) ([]byte, error)

	// EncryptAESCBC 使用 AES-CBC 加密 data（PKCS#7 填充）
	EncryptAESCBC(data, key, iv []byte) ([]byte, error)

	// EncryptRSA 使用配置的 RSA 公钥加密 data
	EncryptRSA(data []byte) ([]byte, error)
}

// BlockSizer 可选接口：报告 RSA 密文块大小。
//
// Encoder 在回退时用它决定 encIV/encKey 占位块的长度。
type BlockSizer interface {
	RSABlockSize() int
}

// 编译时接口检查
var (
	_ Cipher     = (*StdCipher)(nil)
	_ BlockSizer = (*StdCipher)(nil)
)

// StdCipher 基于标准库 crypto 的 Cipher 实现。
//
// RSA 使用 PKCS#1 v1.5 填充，AES 使用 CBC + PKCS#7 填充。
type StdCipher struct {
	pub *rsa.PublicKey
}

// NewStdCipher 使用 RSA 公钥创建 StdCipher。
func NewStdCipher(pub *rsa.PublicKey) (*StdCipher, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidPublicKey)
	}
	return &StdCipher{pub: pub}, nil
}

// ParsePublicKeyHex 解析十六进制编码的 DER 公钥。
//
// 优先按 X.509 SubjectPublicKeyInfo（PKIX）解析，失败时再尝试 PKCS#1。
// 输入会自动 TrimSpace，允许 "0x" 前缀。
func ParsePublicKeyHex(s string) (*rsa.PublicKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPublicKey)
	}
	der, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrInvalidPublicKey, key)
		}
		return pub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// RandomBytes 实现 Cipher 接口
func (c *StdCipher) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncryptAESCBC 实现 Cipher 接口
func (c *StdCipher) EncryptAESCBC(data, key, iv []byte) ([]byte, error) {
	if len(key) != KeySize || len(iv) != IVSize {
		return nil, fmt.Errorf("%w: key %d, iv %d", ErrInvalidKeySize, len(key), len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(data, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// EncryptRSA 实现 Cipher 接口
func (c *StdCipher) EncryptRSA(data []byte) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rand.Reader, c.pub, data)
}

// RSABlockSize 实现 BlockSizer 接口
func (c *StdCipher) RSABlockSize() int {
	return c.pub.Size()
}

// pkcs7Pad 按 PKCS#7 填充到 blockSize 的整数倍，空输入填充一个完整块
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

// CiphertextLen 返回 n 字节明文经 AES-CBC + PKCS#7 后的密文长度
func CiphertextLen(n int) int {
	return (n/aes.BlockSize + 1) * aes.BlockSize
}
