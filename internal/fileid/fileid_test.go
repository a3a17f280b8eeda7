package fileid

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"showcopier/internal/testsupport"
)

func TestDeriveUsesRelativeKey(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "Friends", "Season 01", "e01.avi")
	testsupport.WriteFile(t, path, 128)

	id, err := Derive(path, base)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if id.Key != "Friends/Season 01/e01.avi" {
		t.Fatalf("unexpected key %q", id.Key)
	}
	if id.Fingerprint.Size != 128 {
		t.Fatalf("unexpected size %d", id.Fingerprint.Size)
	}
	if id.Fingerprint.ModTime.IsZero() {
		t.Fatal("expected modification time")
	}
}

func TestDeriveIsStableAcrossRelocation(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	rel := filepath.Join("Show", "Season 02", "e05.avi")
	testsupport.WriteFile(t, filepath.Join(first, rel), 10)
	testsupport.WriteFile(t, filepath.Join(second, rel), 10)

	a, err := Derive(filepath.Join(first, rel), first)
	if err != nil {
		t.Fatalf("Derive first: %v", err)
	}
	b, err := Derive(filepath.Join(second, rel), second)
	if err != nil {
		t.Fatalf("Derive second: %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("keys differ after relocation: %q vs %q", a.Key, b.Key)
	}
}

func TestDeriveMissingFile(t *testing.T) {
	base := t.TempDir()
	_, err := Derive(filepath.Join(base, "missing.avi"), base)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected error to match fs.ErrNotExist, got %v", err)
	}
}

func TestDeriveRejectsOutsideBase(t *testing.T) {
	base := t.TempDir()
	other := filepath.Join(t.TempDir(), "elsewhere.avi")
	testsupport.WriteFile(t, other, 1)

	if _, err := Derive(other, base); !errors.Is(err, ErrOutsideBase) {
		t.Fatalf("expected ErrOutsideBase, got %v", err)
	}
	if _, err := RelativeKey(base, base); !errors.Is(err, ErrOutsideBase) {
		t.Fatalf("expected base itself to be rejected, got %v", err)
	}
}

func TestIsStale(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "Show", "Season 01", "e01.avi")
	testsupport.WriteFile(t, path, 64)

	id, err := Derive(path, base)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if IsStale(id, path) {
		t.Fatal("fresh identity reported stale")
	}

	later := id.Fingerprint.ModTime.Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if !IsStale(id, path) {
		t.Fatal("expected modification time change to be stale")
	}

	id, _ = Derive(path, base)
	testsupport.WriteFile(t, path, 65)
	if err := os.Chtimes(path, id.Fingerprint.ModTime, id.Fingerprint.ModTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if !IsStale(id, path) {
		t.Fatal("expected size change to be stale")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !IsStale(id, path) {
		t.Fatal("expected missing file to be stale")
	}
}

func TestNormalizeKeyComposesUnicode(t *testing.T) {
	decomposed := "Ame\u0301lie/Season 01/e01.avi"
	composed := "Am\u00e9lie/Season 01/e01.avi"
	if got := NormalizeKey(decomposed); got != composed {
		t.Fatalf("expected NFC key %q, got %q", composed, got)
	}
}

func TestDeriveKeepsOnDiskBytes(t *testing.T) {
	base := t.TempDir()
	decomposed := "Ame\u0301lie/Season 01/e01.avi"
	path := Resolve(decomposed, base)
	testsupport.WriteFile(t, path, 8)

	id, err := Derive(path, base)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if id.Key != "Am\u00e9lie/Season 01/e01.avi" {
		t.Fatalf("expected composed key, got %q", id.Key)
	}
	if id.Rel != decomposed {
		t.Fatalf("expected on-disk relative path %q, got %q", decomposed, id.Rel)
	}
	if IsStale(id, Resolve(id.Rel, base)) {
		t.Fatal("resolving the on-disk path should find the unchanged file")
	}
}

func TestResolveRoundTrip(t *testing.T) {
	base := t.TempDir()
	key := "Show/Season 01/e01.avi"
	path := Resolve(key, base)
	got, err := RelativeKey(path, base)
	if err != nil {
		t.Fatalf("RelativeKey: %v", err)
	}
	if got != key {
		t.Fatalf("round trip mismatch: %q vs %q", got, key)
	}
}
