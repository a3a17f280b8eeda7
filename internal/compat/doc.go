// Package compat decides whether a video file will play on the configured
// hardware player.
//
// A file is compatible when it has a video track whose codec is on the
// player's video allow-list with a display aspect ratio inside the player's
// range, and an audio track whose codec is on the audio allow-list. Tracks
// are typed records with explicit presence for every optional field; a track
// missing a field the rule needs simply does not match.
//
// Checker obtains tracks from ffprobe. It is the expensive operation that the
// compatibility cache exists to avoid repeating.
package compat
