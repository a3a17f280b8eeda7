// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe against a file and returns a Result holding the
// container format and every stream. Stream.AspectRatio and ParseRatio turn
// ffprobe's ratio strings into numbers, reporting absence instead of guessing
// when a value is missing or malformed.
package ffprobe
