package xframe

import "errors"

var (
	// ErrNilCipher 表示加密模式缺少 Cipher。
	ErrNilCipher = errors.New("xframe: cipher is required for encrypted mode")

	// ErrInvalidPublicKey 表示公钥无法解析或不是 RSA 公钥。
	ErrInvalidPublicKey = errors.New("xframe: invalid RSA public key")

	// ErrInvalidBlockSize 表示 RSA 块大小无效。
	ErrInvalidBlockSize = errors.New("xframe: invalid RSA block size")

	// ErrEncryption 表示严格模式下加密失败，数据未被编码。
	ErrEncryption = errors.New("xframe: encryption failed")

	// ErrInvalidKeySize 表示 AES 密钥或 IV 长度不正确。
	ErrInvalidKeySize = errors.New("xframe: invalid AES key or IV size")
)
