package compatcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"showcopier/internal/fileid"
	"showcopier/internal/logging"
)

const (
	formatVersion = 1

	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// ErrLockHeld reports that another process kept the cache lock for longer
// than the lock timeout.
var ErrLockHeld = errors.New("cache lock held by another process")

// Entry is a cached verdict for one library file. Path is the file's
// location below the library root exactly as it appears on disk; it only
// differs from Key when the name is not in composed Unicode form.
type Entry struct {
	Key         string             `json:"-"`
	Path        string             `json:"path,omitempty"`
	Fingerprint fileid.Fingerprint `json:"fingerprint"`
	Compatible  bool               `json:"compatible"`
	CheckedAt   time.Time          `json:"checked_at"`
}

// RelPath returns the on-disk path of the entry relative to the library root.
func (e Entry) RelPath() string {
	if e.Path != "" {
		return e.Path
	}
	return e.Key
}

type document struct {
	Version  int              `json:"version"`
	BasePath string           `json:"base_path"`
	Entries  map[string]Entry `json:"entries"`
}

// Option customizes a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for load and flush diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logging.NewComponentLogger(logger, "compatcache")
	}
}

// WithFileLock toggles the advisory lock taken around Flush.
func WithFileLock(enabled bool) Option {
	return func(c *Cache) {
		c.fileLock = enabled
	}
}

// WithLockTimeout bounds how long Flush waits for a lock held by another
// process. Non-positive values keep the default.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithClock overrides the time source used for CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache maps file identities to compatibility verdicts. An empty backing path
// yields a disabled cache: lookups always miss and Flush does nothing.
type Cache struct {
	path        string
	basePath    string
	logger      *slog.Logger
	fileLock    bool
	lockTimeout time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool

	// beforeRename runs after the temp file is written and synced, before it
	// replaces the backing file. Tests use it to simulate an interrupted flush.
	beforeRename func(tmpPath string) error
}

// Load reads the cache stored at backingPath. Keys are resolved against
// basePath. The returned cache is never nil; when the backing file exists but
// is unusable the error is a *CorruptCacheWarning and the cache starts empty.
func Load(backingPath, basePath string, opts ...Option) (*Cache, error) {
	c := &Cache{
		path:        strings.TrimSpace(backingPath),
		basePath:    basePath,
		logger:      logging.NewComponentLogger(nil, "compatcache"),
		fileLock:    true,
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
		entries:     make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.path == "" {
		return c, nil
	}
	if err := c.load(); err != nil {
		c.entries = make(map[string]Entry)
		return c, &CorruptCacheWarning{Path: c.path, Err: err}
	}
	return c, nil
}

// Open is Load for callers that only want the warning logged.
func Open(backingPath, basePath string, logger *slog.Logger, opts ...Option) *Cache {
	opts = append([]Option{WithLogger(logger)}, opts...)
	c, err := Load(backingPath, basePath, opts...)
	if err != nil {
		logging.WarnWithContext(c.logger, "failed to load compatibility cache", "compatcache_load_failed",
			logging.Error(err),
			logging.String("cache_file", c.path),
			logging.String(logging.FieldErrorHint, "cache will start empty and be rewritten on the next flush"),
			logging.String(logging.FieldImpact, "every episode is probed again this run"))
	}
	return c
}

// Path returns the backing file location.
func (c *Cache) Path() string {
	return c.path
}

// BasePath returns the root that cache keys are relative to.
func (c *Cache) BasePath() string {
	return c.basePath
}

// Get returns the cached verdict for path. found is false on a miss, including
// when an entry exists but the file changed since it was recorded. Identity
// errors such as *fileid.NotFoundError are returned to the caller.
func (c *Cache) Get(path string) (compatible bool, found bool, err error) {
	id, err := fileid.Derive(path, c.basePath)
	if err != nil {
		return false, false, err
	}
	if c.path == "" {
		return false, false, nil
	}

	c.mu.RLock()
	entry, ok := c.entries[id.Key]
	c.mu.RUnlock()
	if !ok {
		return false, false, nil
	}
	if !entry.Fingerprint.Equal(id.Fingerprint) {
		c.logger.Debug("cached verdict is stale",
			logging.String(logging.FieldPath, id.Key),
			logging.Int64("cached_size", entry.Fingerprint.Size),
			logging.Int64("current_size", id.Fingerprint.Size))
		return false, false, nil
	}
	return entry.Compatible, true, nil
}

// Set records the verdict for path in memory. It does not persist; call Flush.
func (c *Cache) Set(path string, compatible bool) error {
	id, err := fileid.Derive(path, c.basePath)
	if err != nil {
		return err
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[id.Key]; ok && existing.RelPath() == id.Rel &&
		existing.Compatible == compatible && existing.Fingerprint.Equal(id.Fingerprint) {
		return nil
	}
	entry := Entry{
		Key:         id.Key,
		Fingerprint: id.Fingerprint,
		Compatible:  compatible,
		CheckedAt:   c.now().UTC().Truncate(time.Second),
	}
	if id.Rel != id.Key {
		entry.Path = id.Rel
	}
	c.entries[id.Key] = entry
	c.dirty = true
	return nil
}

// Lookup returns the raw entry stored under a relative key, stale or not.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[fileid.NormalizeKey(key)]
	return entry, ok
}

// List returns all entries sorted by key.
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Count returns the number of entries in the cache.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Remove deletes the entry stored under a relative key.
func (c *Cache) Remove(key string) error {
	key = fileid.NormalizeKey(strings.TrimSpace(key))
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return fmt.Errorf("%q not found in compatibility cache", key)
	}
	delete(c.entries, key)
	c.dirty = true
	return nil
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return
	}
	c.entries = make(map[string]Entry)
	c.dirty = true
}

// Prune drops entries whose file is gone or no longer matches its
// fingerprint, returning the removed keys in sorted order.
func (c *Cache) Prune() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for key, entry := range c.entries {
		id := fileid.Identity{Key: key, Fingerprint: entry.Fingerprint}
		if fileid.IsStale(id, fileid.Resolve(entry.RelPath(), c.basePath)) {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	if len(removed) > 0 {
		c.dirty = true
	}
	sort.Strings(removed)
	return removed
}

// Flush writes every entry to the backing file, replacing it atomically.
// Failures are returned as *PersistError. Flushing an unchanged cache is a no-op.
func (c *Cache) Flush() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistError{Path: c.path, Op: "create cache directory", Err: err}
	}

	if c.fileLock {
		lock := flock.New(c.path + ".lock")
		ctx, cancel := context.WithTimeout(context.Background(), c.lockTimeout)
		ok, err := lock.TryLockContext(ctx, lockRetryDelay)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return &PersistError{Path: c.path, Op: "lock cache file", Err: err}
		}
		if !ok {
			return &PersistError{Path: c.path, Op: "lock cache file", Err: ErrLockHeld}
		}
		defer func() {
			_ = lock.Unlock()
		}()
	}

	data, err := c.marshal()
	if err != nil {
		return &PersistError{Path: c.path, Op: "marshal cache", Err: err}
	}
	if err := c.writeAtomic(data); err != nil {
		return err
	}

	c.dirty = false
	c.logger.Debug("flushed compatibility cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("cache_file", c.path))
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	if doc.Version != formatVersion {
		return fmt.Errorf("unsupported cache version %d", doc.Version)
	}

	entries := make(map[string]Entry, len(doc.Entries))
	for key, entry := range doc.Entries {
		key = fileid.NormalizeKey(strings.TrimSpace(key))
		if key == "" || key == "." {
			continue
		}
		entry.Key = key
		if entry.Path == key {
			entry.Path = ""
		}
		entries[key] = entry
	}
	c.entries = entries

	if doc.BasePath != "" && c.basePath != "" && filepath.Clean(doc.BasePath) != filepath.Clean(c.basePath) {
		c.logger.Info("library root changed since cache was written",
			logging.String("previous_base_path", doc.BasePath),
			logging.String("base_path", c.basePath))
	}
	c.logger.Debug("loaded compatibility cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("cache_file", c.path))
	return nil
}

func (c *Cache) marshal() ([]byte, error) {
	doc := document{
		Version:  formatVersion,
		BasePath: c.basePath,
		Entries:  c.entries,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (c *Cache) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return &PersistError{Path: c.path, Op: "create temp file", Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &PersistError{Path: c.path, Op: "write temp file", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &PersistError{Path: c.path, Op: "sync temp file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &PersistError{Path: c.path, Op: "close temp file", Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return &PersistError{Path: c.path, Op: "chmod temp file", Err: err}
	}

	if c.beforeRename != nil {
		if err := c.beforeRename(tmpPath); err != nil {
			cleanup()
			return &PersistError{Path: c.path, Op: "rename temp file", Err: err}
		}
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		cleanup()
		return &PersistError{Path: c.path, Op: "rename temp file", Err: err}
	}
	return nil
}
