package xframe

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testKey 测试用 RSA 密钥对，只生成一次
var testKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
})

// publicKeyHex 返回测试公钥的十六进制 PKIX 编码
func publicKeyHex(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&testKey().PublicKey)
	require.NoError(t, err)
	return hex.EncodeToString(der)
}

// decodedFrame 解析后的帧
type decodedFrame struct {
	mode    Mode
	encIV   []byte
	encKey  []byte
	payload []byte
}

// parseFrame 解析单个帧，返回帧与剩余字节
func parseFrame(data []byte, blockSize int) (decodedFrame, []byte, error) {
	if len(data) < HeaderSize+2*blockSize {
		return decodedFrame{}, nil, errors.New("short frame")
	}
	n := int(binary.BigEndian.Uint32(data[:4]))
	f := decodedFrame{mode: Mode(data[4])}
	rest := data[HeaderSize:]
	f.encIV, rest = rest[:blockSize], rest[blockSize:]
	f.encKey, rest = rest[:blockSize], rest[blockSize:]
	if len(rest) < n {
		return decodedFrame{}, nil, errors.New("short payload")
	}
	f.payload, rest = rest[:n], rest[n:]
	return f, rest, nil
}

// decryptFrame 使用私钥还原明文（仅测试使用，生产代码不提供解密）
func decryptFrame(t *testing.T, priv *rsa.PrivateKey, f decodedFrame) []byte {
	t.Helper()
	if f.mode == ModePlain {
		return f.payload
	}
	iv, err := rsa.DecryptPKCS1v15(rand.Reader, priv, f.encIV)
	require.NoError(t, err)
	key, err := rsa.DecryptPKCS1v15(rand.Reader, priv, f.encKey)
	require.NoError(t, err)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	require.Zero(t, len(f.payload)%aes.BlockSize)
	plain := make([]byte, len(f.payload))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, f.payload)

	pad := int(plain[len(plain)-1])
	require.True(t, pad > 0 && pad <= aes.BlockSize)
	return plain[:len(plain)-pad]
}
