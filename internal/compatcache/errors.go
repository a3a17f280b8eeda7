package compatcache

import "fmt"

// CorruptCacheWarning reports a backing file that exists but could not be
// read or parsed. The cache that accompanies it is empty and fully usable.
type CorruptCacheWarning struct {
	Path string
	Err  error
}

func (w *CorruptCacheWarning) Error() string {
	return fmt.Sprintf("compatibility cache %s unusable, starting empty: %v", w.Path, w.Err)
}

func (w *CorruptCacheWarning) Unwrap() error {
	return w.Err
}

// PersistError reports a failed flush. The previous backing file is left intact.
type PersistError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist compatibility cache %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
