// Package fileutil holds file copy helpers used when transferring episodes.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFileVerified streams src to dst with SHA-256 and size verification.
// Data is written to a ".part" file next to dst and renamed into place only
// after verification, so dst never holds a truncated copy. Parent
// directories are created as needed.
func CopyFileVerified(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	partPath := dst + ".part"
	out, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	discard := func() {
		_ = out.Close()
		_ = os.Remove(partPath)
	}

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		discard()
		return 0, err
	}
	if err := out.Sync(); err != nil {
		discard()
		return 0, fmt.Errorf("sync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partPath)
		return 0, err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(partPath)
		return 0, errors.New("copy hash mismatch: file corrupted during copy")
	}

	if err := os.Rename(partPath, dst); err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("finalize destination: %w", err)
	}
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	return written, nil
}

// SameSize reports whether dst exists as a regular file with the same size as src.
func SameSize(src, dst string) (bool, error) {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	return dstInfo.Mode().IsRegular() && dstInfo.Size() == srcInfo.Size(), nil
}
