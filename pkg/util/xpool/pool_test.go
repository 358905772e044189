package xpool

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Basic(t *testing.T) {
	var processed atomic.Int32

	pool, err := NewWorkerPool(2, 10, func(n int) {
		processed.Add(1)
	}, WithName("basic"))
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Close())
	assert.Equal(t, int32(5), processed.Load())
	assert.Equal(t, 2, pool.Workers())
	assert.Equal(t, 10, pool.QueueSize())
}

func TestWorkerPool_Validation(t *testing.T) {
	_, err := NewWorkerPool[int](1, 1, nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = NewWorkerPool(0, 1, func(int) {})
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	_, err = NewWorkerPool(1, 0, func(int) {})
	assert.ErrorIs(t, err, ErrInvalidQueueSize)
}

func TestWorkerPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	pool, err := NewWorkerPool(1, 1, func(int) {
		once.Do(func() { close(started) })
		<-release
	})
	require.NoError(t, err)

	require.NoError(t, pool.Submit(1))
	<-started
	require.NoError(t, pool.Submit(2))
	assert.ErrorIs(t, pool.Submit(3), ErrQueueFull)

	close(release)
	require.NoError(t, pool.Close())
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool, err := NewWorkerPool(1, 1, func(int) {})
	require.NoError(t, err)
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close(), "幂等")

	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
}

func TestWorkerPool_ShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	pool, err := NewWorkerPool(1, 1, func(int) { <-release })
	require.NoError(t, err)
	require.NoError(t, pool.Submit(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	select {
	case <-pool.Done():
	case <-time.After(time.Second):
		t.Fatal("worker 未退出")
	}

	//nolint:staticcheck // 验证 nil context 处理
	assert.ErrorIs(t, pool.Shutdown(nil), ErrNilContext)
}

func TestWorkerPool_PanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var processed atomic.Int32

	pool, err := NewWorkerPool(1, 4, func(n int) {
		if n == 1 {
			panic("boom")
		}
		processed.Add(1)
	}, WithLogger(logger), WithName("panicky"))
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Close())

	assert.Equal(t, int32(2), processed.Load())
	assert.Contains(t, buf.String(), "worker panic recovered")
	assert.Contains(t, buf.String(), "task_type=int")
	assert.NotContains(t, buf.String(), "task=1")
}

func TestWorkerPool_LogTaskValue(t *testing.T) {
	var buf bytes.Buffer
	pool, err := NewWorkerPool(1, 1, func(string) { panic("x") },
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithLogTaskValue())
	require.NoError(t, err)
	require.NoError(t, pool.Submit("secret-file.log"))
	require.NoError(t, pool.Close())
	assert.Contains(t, buf.String(), "secret-file.log")
}
