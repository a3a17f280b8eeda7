package fileid

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrOutsideBase reports a path that does not live below the base directory.
var ErrOutsideBase = errors.New("path is outside the base directory")

// NotFoundError reports that the file to identify does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// Unwrap lets callers match fs.ErrNotExist.
func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// Fingerprint captures the staleness signal for a file.
type Fingerprint struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Equal reports whether two fingerprints describe the same file state.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// Identity is the cache key for a file plus the fingerprint recorded when it was derived.
// Key is Unicode-normalized for lookups; Rel keeps the path's bytes as they
// appear on disk, which is what Resolve needs to find the file again.
type Identity struct {
	Key         string
	Rel         string
	Fingerprint Fingerprint
}

// Derive builds the identity of path relative to basePath. It fails with
// *NotFoundError when path does not exist.
func Derive(path, basePath string) (Identity, error) {
	rel, err := RelativePath(path, basePath)
	if err != nil {
		return Identity{}, err
	}
	fp, err := Current(path)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Key: NormalizeKey(rel), Rel: rel, Fingerprint: fp}, nil
}

// IsStale reports whether the file at path no longer matches the fingerprint
// stored in id. A file that cannot be inspected counts as stale.
func IsStale(id Identity, path string) bool {
	fp, err := Current(path)
	if err != nil {
		return true
	}
	return !fp.Equal(id.Fingerprint)
}

// Current reads the fingerprint of the file at path as it is now.
func Current(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, &NotFoundError{Path: path}
		}
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("identify %s: is a directory", path)
	}
	return Fingerprint{Size: info.Size(), ModTime: info.ModTime().UTC()}, nil
}

// RelativeKey returns the normalized key of path below basePath.
func RelativeKey(path, basePath string) (string, error) {
	rel, err := RelativePath(path, basePath)
	if err != nil {
		return "", err
	}
	return NormalizeKey(rel), nil
}

// RelativePath returns path below basePath in slash form with its bytes
// untouched, so that Resolve(rel, other) names the same file under another root.
func RelativePath(path, basePath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, path)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, path)
	}
	return filepath.ToSlash(rel), nil
}

// NormalizeKey converts a relative path into canonical key form.
func NormalizeKey(rel string) string {
	return norm.NFC.String(filepath.ToSlash(filepath.Clean(rel)))
}

// Resolve maps a slash-separated relative path back to an absolute path below
// basePath. Pass Identity.Rel when the result must name an existing file.
func Resolve(rel, basePath string) string {
	return filepath.Join(basePath, filepath.FromSlash(rel))
}
