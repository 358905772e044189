package xfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

const (
	// LogExt 日志文件扩展名
	LogExt = ".log"

	// ZipExt 归档扩展名
	ZipExt = ".zip"
)

// ZipName 返回日志文件对应的归档名："2024-01-02-1.log" -> "2024-01-02-1.zip"。
// 不以 ".log" 结尾的名称直接追加 ".zip"。
func ZipName(logName string) string {
	return strings.TrimSuffix(logName, LogExt) + ZipExt
}

// Exists 报告 path 是否存在。
// 存在性无法确定时（如权限错误）返回 error。
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// ListUncompressed 列出 dir 下尚未压缩的日志文件名（按名称排序）。
//
// 满足条件的条目：普通文件、以 ".log" 结尾、同目录不存在对应的 ".zip"、
// 且名称不在 exclude 中。目录不存在时返回空列表。
func ListUncompressed(dir string, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("xfile: read dir %s: %w", dir, err)
	}

	archived := make(map[string]struct{})
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ZipExt) {
			archived[e.Name()] = struct{}{}
		}
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, LogExt) {
			continue
		}
		if _, ok := archived[ZipName(name)]; ok {
			continue
		}
		if slices.Contains(exclude, name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
