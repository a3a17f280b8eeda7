package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parents) filled with size bytes of a fixed
// pattern, truncating any existing file. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteLibrary creates one small file per relative path below root.
func WriteLibrary(t testing.TB, root string, rels ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(rels))
	for i, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		WriteFile(t, path, int64(16+i))
		paths = append(paths, path)
	}
	return paths
}
