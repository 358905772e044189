package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// JoinName 将单个文件名拼接到目录 dir 下。
//
// name 必须是单个路径段：不能为空、"." 或 ".."，不能包含 '/'、'\' 或空字节。
// 以 ".." 开头的合法文件名（如 "..config"）不受影响。
//
//	JoinName("/data/log", "2024-01-02-1.log") // -> "/data/log/2024-01-02-1.log", nil
//	JoinName("/data/log", "../passwd")        // -> "", ErrInvalidName
func JoinName(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("directory is required: %w", ErrEmptyPath)
	}
	if name == "" {
		return "", fmt.Errorf("name is required: %w", ErrEmptyPath)
	}
	if containsNullByte(dir) || containsNullByte(name) {
		return "", ErrNullByte
	}
	if err := CheckName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// CheckName 检查 name 是否为单个合法路径段。
//
// 同时把 '\' 视为分隔符：Windows 风格的名称在 Linux 上虽然合法，
// 但几乎总是跨平台拼接错误。
func CheckName(name string) error {
	if name == "." || name == ".." {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q contains separator: %w", name, ErrInvalidName)
	}
	if containsNullByte(name) {
		return fmt.Errorf("name contains null byte: %w", ErrNullByte)
	}
	return nil
}
