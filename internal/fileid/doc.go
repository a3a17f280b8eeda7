// Package fileid derives stable identities for library files.
//
// An Identity pairs the file's path relative to the library root with a
// Fingerprint of its size and modification time. The relative path is the
// cache key, so a library can be moved or remounted without invalidating
// previously computed verdicts; the fingerprint detects files that were
// replaced or re-encoded in place.
//
// Relative paths are slash-separated and NFC-normalized so the same library
// yields the same keys on filesystems that store decomposed Unicode names.
package fileid
