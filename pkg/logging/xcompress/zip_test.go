package xcompress

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(data)
	}
	return out
}

func TestZipCompressor_Compress(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("03-05 10:00:00.000 I/ line\n", 2000)
	writeLog(t, dir, "2024-03-05-0.log", big)
	writeLog(t, dir, "2024-03-05-1.log", "second\n")
	writeLog(t, dir, "2024-03-05-2.log", "active\n")
	writeLog(t, dir, "notes.txt", "ignored\n")

	z := NewZipCompressor(WithWorkers(4))
	require.NoError(t, z.Compress(context.Background(), dir, "2024-03-05-2.log"))

	assert.Equal(t, map[string]string{"2024-03-05-0.log": big}, readZip(t, filepath.Join(dir, "2024-03-05-0.zip")))
	assert.Equal(t, map[string]string{"2024-03-05-1.log": "second\n"}, readZip(t, filepath.Join(dir, "2024-03-05-1.zip")))

	_, err := os.Stat(filepath.Join(dir, "2024-03-05-0.log"))
	assert.True(t, os.IsNotExist(err), "源文件已删除")
	_, err = os.Stat(filepath.Join(dir, "2024-03-05-2.log"))
	assert.NoError(t, err, "正在写入的文件不压缩")
	_, err = os.Stat(filepath.Join(dir, "2024-03-05-2.zip"))
	assert.True(t, os.IsNotExist(err))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestZipCompressor_SkipsArchived(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2024-03-05-0.log", "leftover\n")
	writeLog(t, dir, "2024-03-05-0.zip", "existing archive")

	require.NoError(t, NewZipCompressor().Compress(context.Background(), dir, ""))

	data, err := os.ReadFile(filepath.Join(dir, "2024-03-05-0.zip"))
	require.NoError(t, err)
	assert.Equal(t, "existing archive", string(data))
}

func TestZipCompressor_KeepSource(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "s_2024-03-05-0.log", "enc")

	require.NoError(t, NewZipCompressor(WithKeepSource(), WithLevel(1)).Compress(context.Background(), dir, ""))

	_, err := os.Stat(filepath.Join(dir, "s_2024-03-05-0.log"))
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"s_2024-03-05-0.log": "enc"}, readZip(t, filepath.Join(dir, "s_2024-03-05-0.zip")))
}

func TestZipCompressor_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2024-03-05-0.log", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewZipCompressor().Compress(ctx, dir, "")
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(dir, "2024-03-05-0.log"))
	assert.NoError(t, statErr)
}

func TestZipCompressor_CancelledManyFiles(t *testing.T) {
	dir := t.TempDir()
	const files = 24
	for i := range files {
		writeLog(t, dir, fmt.Sprintf("2024-03-05-%d.log", i), "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewZipCompressor(WithWorkers(4)).Compress(ctx, dir, "")
	require.ErrorIs(t, err, context.Canceled)

	var joined interface{ Unwrap() []error }
	require.ErrorAs(t, err, &joined)
	assert.Len(t, joined.Unwrap(), files, "every failed file must be reported")

	archives, globErr := filepath.Glob(filepath.Join(dir, "*.zip"))
	require.NoError(t, globErr)
	assert.Empty(t, archives)
}

func TestZipCompressor_EmptyAndMissingDir(t *testing.T) {
	z := NewZipCompressor()
	assert.ErrorIs(t, z.Compress(context.Background(), "", ""), ErrEmptyDir)
	assert.NoError(t, z.Compress(context.Background(), filepath.Join(t.TempDir(), "absent"), ""))
}
