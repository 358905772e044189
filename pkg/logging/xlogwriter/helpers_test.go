package xlogwriter

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlogfile/pkg/logging/xframe"
	"github.com/omeyang/xlogfile/pkg/observability/xmetrics"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fixedLine 返回 fixedClock 下 INFO 行的完整内容
func fixedLine(text string) string {
	return "01-02 03:04:05.006 I/ " + text + "\n"
}

// newTestWriter 创建测试用 Writer：固定时钟、关闭压缩、10ms 延迟 flush。
// 测试结束时自动 Shutdown。
func newTestWriter(t *testing.T, opts ...Option) *Writer {
	t.Helper()
	base := []Option{
		WithDir(t.TempDir()),
		WithClock(fixedClock),
		WithoutCompression(),
		WithFlushDelay(10 * time.Millisecond),
	}
	w, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Shutdown(ctx); err != nil && !errors.Is(err, ErrClosed) {
			t.Errorf("shutdown: %v", err)
		}
	})
	return w
}

func shutdown(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))
}

func readLog(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return data
}

func fileContent(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return string(data)
}

var testKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
})

func publicKeyHex(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&testKey().PublicKey)
	require.NoError(t, err)
	return hex.EncodeToString(der)
}

type frame struct {
	length  uint32
	mode    xframe.Mode
	encIV   []byte
	encKey  []byte
	payload []byte
}

// parseFrames 把文件内容拆分为帧
func parseFrames(t *testing.T, data []byte) []frame {
	t.Helper()
	const block = xframe.DefaultRSABlockSize
	var frames []frame
	for len(data) > 0 {
		require.GreaterOrEqual(t, len(data), xframe.HeaderSize+2*block, "short frame")
		f := frame{length: binary.BigEndian.Uint32(data[:4]), mode: xframe.Mode(data[4])}
		rest := data[xframe.HeaderSize:]
		f.encIV, rest = rest[:block], rest[block:]
		f.encKey, rest = rest[:block], rest[block:]
		require.GreaterOrEqual(t, len(rest), int(f.length), "short payload")
		f.payload, data = rest[:f.length], rest[f.length:]
		frames = append(frames, f)
	}
	return frames
}

// decrypt 还原帧中的明文
func decrypt(t *testing.T, f frame) []byte {
	t.Helper()
	if f.mode == xframe.ModePlain {
		return f.payload
	}
	priv := testKey()
	iv, err := rsa.DecryptPKCS1v15(rand.Reader, priv, f.encIV)
	require.NoError(t, err)
	key, err := rsa.DecryptPKCS1v15(rand.Reader, priv, f.encKey)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	plain := make([]byte, len(f.payload))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, f.payload)
	pad := int(plain[len(plain)-1])
	require.True(t, pad > 0 && pad <= aes.BlockSize)
	return plain[:len(plain)-pad]
}

// failingCipher 所有操作都失败的加密原语
type failingCipher struct{}

func (failingCipher) RandomBytes(int) ([]byte, error) { return nil, errors.New("entropy exhausted") }

func (failingCipher) EncryptAESCBC(_, _, _ []byte) ([]byte, error) {
	return nil, errors.New("unreachable")
}

func (failingCipher) EncryptRSA([]byte) ([]byte, error) { return nil, errors.New("unreachable") }

// recordingObserver 记录计数器累加值
type recordingObserver struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{counts: make(map[string]int64)}
}

func (o *recordingObserver) Start(ctx context.Context, _ xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
	return ctx, xmetrics.NoopSpan{}
}

func (o *recordingObserver) Count(_ context.Context, name string, n int64, _ ...xmetrics.Attr) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[name] += n
}

func (o *recordingObserver) get(name string) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[name]
}
