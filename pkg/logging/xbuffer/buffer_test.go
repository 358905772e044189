package xbuffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		_, err := New(c)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestBuffer_AppendAndDrain(t *testing.T) {
	b, err := New(64)
	require.NoError(t, err)

	require.NoError(t, b.Append([]byte("hello ")))
	require.NoError(t, b.Append([]byte("world\n")))
	assert.Equal(t, 12, b.Len())
	assert.Equal(t, 52, b.Free())

	out := b.Drain()
	assert.Equal(t, "hello world\n", string(out))
	assert.Zero(t, b.Len())
	assert.Equal(t, 64, b.Cap())
}

func TestBuffer_StrictFreeSpace(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	// 剩余空间必须严格大于数据长度
	assert.ErrorIs(t, b.Append(make([]byte, 10)), ErrOverflow)
	require.NoError(t, b.Append(make([]byte, 9)))
	assert.Equal(t, 1, b.Free())
	assert.ErrorIs(t, b.Append([]byte{1}), ErrOverflow)
}

func TestBuffer_OverflowKeepsPriorContent(t *testing.T) {
	b, err := New(DefaultCapacity)
	require.NoError(t, err)

	prior := bytes.Repeat([]byte("a"), 100)
	require.NoError(t, b.Append(prior))

	// 16385 字节超过容量：走丢弃路径
	err = b.Append(make([]byte, DefaultCapacity+1))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, prior, b.Bytes())

	require.NoError(t, b.Append([]byte("b")))
	assert.Equal(t, 101, b.Len())
}

func TestBuffer_BatchSizes(t *testing.T) {
	for _, n := range []int{0, 1, 4095, 4096} {
		b, err := New(DefaultCapacity)
		require.NoError(t, err)
		data := bytes.Repeat([]byte{'x'}, n)
		require.NoError(t, b.Append(data))
		assert.Equal(t, data, b.Drain())
	}
}

func TestBuffer_ResetReusesStorage(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("abc")))
	b.Reset()
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Bytes())
	require.NoError(t, b.Append([]byte("defg")))
	assert.Equal(t, "defg", string(b.Bytes()))
}
