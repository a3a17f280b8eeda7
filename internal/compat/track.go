package compat

import (
	"strings"

	"showcopier/internal/media/ffprobe"
)

// TrackKind classifies a media track.
type TrackKind int

const (
	KindOther TrackKind = iota
	KindVideo
	KindAudio
)

func (k TrackKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "other"
	}
}

// Track is the subset of track metadata the compatibility rule reads.
// Empty strings mean the field was absent.
type Track struct {
	Index          int
	Kind           TrackKind
	CodecID        string
	CodecHint      string
	AspectRatio    float64
	HasAspectRatio bool
}

// TracksFromProbe converts ffprobe streams into tracks. The container codec
// tag becomes CodecID and ffprobe's decoder name becomes CodecHint, both
// lowercased. Tags made of non-printable bytes are treated as absent.
func TracksFromProbe(result ffprobe.Result) []Track {
	tracks := make([]Track, 0, len(result.Streams))
	for _, stream := range result.Streams {
		track := Track{
			Index:     stream.Index,
			Kind:      kindOf(stream.CodecType),
			CodecID:   normalizeTag(stream.CodecTag),
			CodecHint: strings.ToLower(strings.TrimSpace(stream.CodecName)),
		}
		if track.Kind == KindVideo {
			track.AspectRatio, track.HasAspectRatio = stream.AspectRatio()
		}
		tracks = append(tracks, track)
	}
	return tracks
}

func kindOf(codecType string) TrackKind {
	switch strings.ToLower(strings.TrimSpace(codecType)) {
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	default:
		return KindOther
	}
}

func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.Contains(tag, "[") {
		return ""
	}
	return strings.ToLower(tag)
}
