// Package fsutil provides file system helpers and the permission
// constants used across the project.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Permission modes.
const (
	FileModeDefault = 0o644 // -rw-r--r--: regular files
	FileModeSecure  = 0o640 // -rw-r-----: sensitive files
	DirModeDefault  = 0o755 // drwxr-xr-x: directories
	DirModeSecure   = 0o750 // drwxr-x---: sensitive directories
	DirModePrivate  = 0o700 // drwx------: private directories
)

// EnsureDir creates a directory and all parents with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// Move moves a file from src to dst, trying an atomic rename first and
// falling back to copy plus delete across filesystem boundaries.
func Move(src, dst string) error {
	if src == "" || dst == "" {
		return fmt.Errorf("source and destination paths cannot be empty")
	}
	if err := EnsureFileDir(dst); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}
