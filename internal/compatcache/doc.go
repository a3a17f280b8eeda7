// Package compatcache persists compatibility verdicts for library files.
//
// Probing a video with ffprobe is the slowest part of a copy run, so each
// verdict is stored against the file's identity (see package fileid): its
// path relative to the library root plus a size/mtime fingerprint. A cached
// verdict is only returned while the file still matches that fingerprint;
// stale entries read as misses and are overwritten by the next Set.
//
// # Storage
//
// The cache is a single indented JSON document (default:
// ~/.cache/showcopier/compat_cache.json) keyed by relative path:
//
//	{
//	  "version": 1,
//	  "base_path": "/home/me/library/tv",
//	  "entries": {
//	    "Friends/Season 01/e01.avi": {
//	      "fingerprint": {"size": 183500800, "mod_time": "2019-03-02T18:44:10Z"},
//	      "compatible": true,
//	      "checked_at": "2026-10-18T09:12:44Z"
//	    }
//	  }
//	}
//
// Keys are in composed Unicode form (NFC) so the same episode matches whether
// its name was written by macOS or Linux. When the name on disk is not
// composed, the entry also carries a "path" field with the original bytes,
// and Prune resolves that path instead of the key.
//
// Flush replaces the file atomically (temp file, fsync, rename) so an
// interrupted run never leaves a half-written cache behind. A missing file
// starts an empty cache; an unreadable or unparsable one does too, reported
// as a CorruptCacheWarning rather than an error.
//
// Flush optionally holds an advisory lock on <cache_file>.lock so two
// overlapping runs cannot interleave their writes. A lock still held by
// another process after the lock timeout fails the flush with ErrLockHeld. Concurrent runs can still
// overwrite each other's verdicts; the last flush wins.
package compatcache
