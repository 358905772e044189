package xfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDirPerm 默认目录权限（gosec G301）
const DefaultDirPerm = 0750

// EnsureDir 确保文件的父目录存在，使用默认权限 0750。
// 目录已存在时不报错。
func EnsureDir(filename string) error {
	return EnsureDirWithPerm(filename, DefaultDirPerm)
}

// EnsureDirWithPerm 确保文件的父目录存在，使用指定权限。
//
// perm 必须包含所有者执行位（0100），否则目录无法遍历。
// 目录已存在时不会修改其权限。
func EnsureDirWithPerm(filename string, perm os.FileMode) error {
	if filename == "" {
		return fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		if containsNullByte(filename) {
			return fmt.Errorf("filename contains null byte: %w", ErrNullByte)
		}
		return checkPerm(perm)
	}
	return EnsureDirPathWithPerm(dir, perm)
}

// EnsureDirPath 确保目录 dir 存在，使用默认权限 0750。
func EnsureDirPath(dir string) error {
	return EnsureDirPathWithPerm(dir, DefaultDirPerm)
}

// EnsureDirPathWithPerm 确保目录 dir 存在。
//
// dir 已存在但不是目录时返回 ErrNotDir。
// 底层使用 os.MkdirAll，会跟随符号链接。
func EnsureDirPathWithPerm(dir string, perm os.FileMode) error {
	if dir == "" {
		return fmt.Errorf("directory is required: %w", ErrEmptyPath)
	}
	if containsNullByte(dir) {
		return fmt.Errorf("directory contains null byte: %w", ErrNullByte)
	}
	if err := checkPerm(perm); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
			return fmt.Errorf("%s: %w", dir, ErrNotDir)
		}
		return err
	}
	return nil
}

func checkPerm(perm os.FileMode) error {
	if perm&0100 == 0 {
		return fmt.Errorf("directory permission %04o missing owner execute bit: %w", perm, ErrInvalidPerm)
	}
	return nil
}

func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}
