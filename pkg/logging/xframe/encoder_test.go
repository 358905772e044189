package xframe

import (
	"bytes"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newStdEncoder(t *testing.T, opts ...Option) *Encoder {
	t.Helper()
	pub, err := ParsePublicKeyHex(publicKeyHex(t))
	require.NoError(t, err)
	c, err := NewStdCipher(pub)
	require.NoError(t, err)
	enc, err := NewEncryptedEncoder(c, opts...)
	require.NoError(t, err)
	return enc
}

// ============================================================================
// 明文模式
// ============================================================================

func TestPlainEncoder_PassThrough(t *testing.T) {
	enc := NewPlainEncoder()
	assert.Equal(t, ModePlain, enc.Mode())

	batch := []byte("01-02 03:04:05.678 I/ hello\n")
	rec, err := enc.Encode(batch)
	require.NoError(t, err)
	assert.False(t, rec.Framed)
	assert.False(t, rec.Fallback)
	assert.Equal(t, batch, rec.Bytes())
	assert.Equal(t, len(batch), rec.PayloadLen)
}

// ============================================================================
// 加密模式
// ============================================================================

func TestEncryptedEncoder_RoundTrip(t *testing.T) {
	enc := newStdEncoder(t)
	assert.Equal(t, ModeEncrypted, enc.Mode())

	for _, size := range []int{0, 1, 4095, 4096} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			batch := bytes.Repeat([]byte{'x'}, size)
			rec, err := enc.Encode(batch)
			require.NoError(t, err)
			require.True(t, rec.Framed)
			require.False(t, rec.Fallback)
			assert.Equal(t, CiphertextLen(size), rec.PayloadLen)

			f, rest, err := parseFrame(rec.Bytes(), DefaultRSABlockSize)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, ModeEncrypted, f.mode)
			assert.Equal(t, batch, decryptFrame(t, testKey(), f))
		})
	}
}

func TestEncryptedEncoder_LengthPrefix(t *testing.T) {
	enc := newStdEncoder(t)

	rec, err := enc.Encode(bytes.Repeat([]byte{'a'}, 5000))
	require.NoError(t, err)

	data := rec.Bytes()
	assert.Equal(t, uint32(5008), binary.BigEndian.Uint32(data[:4]))
	assert.Equal(t, byte(1), data[4])
	assert.Equal(t, HeaderSize+2*DefaultRSABlockSize+5008, rec.Len())
}

func TestEncryptedEncoder_FreshKeyPerBatch(t *testing.T) {
	enc := newStdEncoder(t)
	batch := []byte("same payload\n")

	a, err := enc.Encode(batch)
	require.NoError(t, err)
	b, err := enc.Encode(batch)
	require.NoError(t, err)

	fa, _, err := parseFrame(a.Bytes(), DefaultRSABlockSize)
	require.NoError(t, err)
	fb, _, err := parseFrame(b.Bytes(), DefaultRSABlockSize)
	require.NoError(t, err)
	assert.NotEqual(t, fa.payload, fb.payload)
}

func TestEncryptedEncoder_FramesConcatenate(t *testing.T) {
	enc := newStdEncoder(t)
	var file []byte
	for _, line := range []string{"first\n", "second\n", "third\n"} {
		rec, err := enc.Encode([]byte(line))
		require.NoError(t, err)
		file = append(file, rec.Bytes()...)
	}

	var got []byte
	for len(file) > 0 {
		f, rest, err := parseFrame(file, DefaultRSABlockSize)
		require.NoError(t, err)
		got = append(got, decryptFrame(t, testKey(), f)...)
		file = rest
	}
	assert.Equal(t, "first\nsecond\nthird\n", string(got))
}

// ============================================================================
// 回退
// ============================================================================

func TestEncryptedEncoder_FallbackOnAESFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockCipher(ctrl)
	aesErr := errors.New("aes unavailable")

	c.EXPECT().RandomBytes(KeySize).Return(make([]byte, KeySize), nil)
	c.EXPECT().RandomBytes(IVSize).Return(make([]byte, IVSize), nil)
	c.EXPECT().EncryptAESCBC(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, aesErr)

	enc, err := NewEncryptedEncoder(c)
	require.NoError(t, err)

	batch := []byte("plain fallback\n")
	rec, err := enc.Encode(batch)
	require.NoError(t, err)
	assert.True(t, rec.Fallback)
	assert.True(t, rec.Framed)
	assert.Equal(t, ModePlain, rec.Mode)
	assert.ErrorIs(t, rec.Cause, aesErr)

	f, rest, err := parseFrame(rec.Bytes(), DefaultRSABlockSize)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, ModePlain, f.mode)
	assert.Equal(t, make([]byte, DefaultRSABlockSize), f.encIV)
	assert.Equal(t, make([]byte, DefaultRSABlockSize), f.encKey)
	assert.Equal(t, batch, f.payload)
	assert.Equal(t, uint32(len(batch)), binary.BigEndian.Uint32(rec.Bytes()[:4]))
}

func TestEncryptedEncoder_FallbackOnRSAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockCipher(ctrl)

	c.EXPECT().RandomBytes(gomock.Any()).Return(make([]byte, 16), nil).Times(2)
	c.EXPECT().EncryptAESCBC(gomock.Any(), gomock.Any(), gomock.Any()).Return(make([]byte, 16), nil)
	c.EXPECT().EncryptRSA(gomock.Any()).Return(nil, errors.New("rsa broken"))

	enc, err := NewEncryptedEncoder(c, WithRSABlockSize(128))
	require.NoError(t, err)

	rec, err := enc.Encode([]byte("x"))
	require.NoError(t, err)
	assert.True(t, rec.Fallback)
	assert.Equal(t, HeaderSize+2*128+1, rec.Len())
}

func TestEncryptedEncoder_FallbackOnRandomFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockCipher(ctrl)
	c.EXPECT().RandomBytes(KeySize).Return(nil, errors.New("no entropy"))

	enc, err := NewEncryptedEncoder(c)
	require.NoError(t, err)

	rec, err := enc.Encode([]byte("x"))
	require.NoError(t, err)
	assert.True(t, rec.Fallback)
	assert.Contains(t, rec.Cause.Error(), "generate key")
}

func TestEncryptedEncoder_Strict(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockCipher(ctrl)
	c.EXPECT().RandomBytes(KeySize).Return(nil, errors.New("no entropy"))

	enc, err := NewEncryptedEncoder(c, WithStrictEncryption())
	require.NoError(t, err)

	_, err = enc.Encode([]byte("x"))
	assert.ErrorIs(t, err, ErrEncryption)
}

func TestEncryptedEncoder_ShortKeyMaterial(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockCipher(ctrl)
	c.EXPECT().RandomBytes(gomock.Any()).Return([]byte{1, 2, 3}, nil).Times(2)

	enc, err := NewEncryptedEncoder(c, WithStrictEncryption())
	require.NoError(t, err)

	_, err = enc.Encode([]byte("x"))
	assert.ErrorIs(t, err, ErrEncryption)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestNewEncryptedEncoder_Validation(t *testing.T) {
	_, err := NewEncryptedEncoder(nil)
	assert.ErrorIs(t, err, ErrNilCipher)

	ctrl := gomock.NewController(t)
	_, err = NewEncryptedEncoder(NewMockCipher(ctrl), WithRSABlockSize(0))
	assert.ErrorIs(t, err, ErrInvalidBlockSize)
}

// ============================================================================
// 公钥解析
// ============================================================================

func TestParsePublicKeyHex(t *testing.T) {
	pkix := publicKeyHex(t)
	pkcs1 := hex.EncodeToString(x509.MarshalPKCS1PublicKey(&testKey().PublicKey))

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"pkix", pkix, false},
		{"pkix with prefix and spaces", "  0x" + pkix + "\n", false},
		{"pkcs1", pkcs1, false},
		{"empty", "   ", true},
		{"not hex", "zz", true},
		{"garbage der", "deadbeef", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := ParsePublicKeyHex(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPublicKey)
				return
			}
			require.NoError(t, err)
			assert.True(t, pub.Equal(&testKey().PublicKey))
		})
	}
}

func TestNewStdCipher(t *testing.T) {
	_, err := NewStdCipher(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	c, err := NewStdCipher(&testKey().PublicKey)
	require.NoError(t, err)
	assert.Equal(t, 256, c.RSABlockSize())

	_, err = c.EncryptAESCBC([]byte("x"), []byte("short"), make([]byte, IVSize))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestCiphertextLen(t *testing.T) {
	assert.Equal(t, 16, CiphertextLen(0))
	assert.Equal(t, 16, CiphertextLen(15))
	assert.Equal(t, 32, CiphertextLen(16))
	assert.Equal(t, 5008, CiphertextLen(5000))
}

