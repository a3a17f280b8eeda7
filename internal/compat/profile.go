package compat

import (
	"fmt"
	"slices"
	"strings"

	"showcopier/internal/config"
)

// Profile is the codec and aspect ratio support of a player.
type Profile struct {
	Name           string
	VideoCodecs    []string
	AudioCodecs    []string
	MinAspectRatio float64 // inclusive
	MaxAspectRatio float64 // exclusive
}

// ProfileFromConfig builds the player profile from configuration.
func ProfileFromConfig(cfg *config.Config) Profile {
	return Profile{
		Name:           cfg.Player.Name,
		VideoCodecs:    slices.Clone(cfg.Player.VideoCodecs),
		AudioCodecs:    slices.Clone(cfg.Player.AudioCodecs),
		MinAspectRatio: cfg.Player.MinAspectRatio,
		MaxAspectRatio: cfg.Player.MaxAspectRatio,
	}
}

// Verdict explains the outcome of Evaluate. VideoTrack and AudioTrack hold
// the index of the deciding track, or -1 when none matched.
type Verdict struct {
	Compatible  bool
	VideoOK     bool
	AudioOK     bool
	VideoTrack  int
	AudioTrack  int
	VideoReason string
	AudioReason string
}

// Evaluate applies the player rule to tracks. The first matching track of
// each kind decides that half of the verdict; later tracks of the same kind
// are not consulted once a match is found.
func Evaluate(tracks []Track, p Profile) Verdict {
	v := Verdict{
		VideoTrack:  -1,
		AudioTrack:  -1,
		VideoReason: "no video track",
		AudioReason: "no audio track",
	}
	for _, track := range tracks {
		switch track.Kind {
		case KindVideo:
			if v.VideoOK {
				continue
			}
			ok, reason := p.videoMatches(track)
			v.VideoReason = reason
			if ok {
				v.VideoOK = true
				v.VideoTrack = track.Index
			}
		case KindAudio:
			if v.AudioOK {
				continue
			}
			ok, reason := p.audioMatches(track)
			v.AudioReason = reason
			if ok {
				v.AudioOK = true
				v.AudioTrack = track.Index
			}
		}
	}
	v.Compatible = v.VideoOK && v.AudioOK
	return v
}

func (p Profile) videoMatches(track Track) (bool, string) {
	if !codecAllowed(track, p.VideoCodecs) {
		return false, fmt.Sprintf("video codec %s not supported", describeCodec(track))
	}
	if !track.HasAspectRatio {
		return false, "video aspect ratio unknown"
	}
	if track.AspectRatio < p.MinAspectRatio || track.AspectRatio >= p.MaxAspectRatio {
		return false, fmt.Sprintf("aspect ratio %.3f outside [%.3g, %.3g)", track.AspectRatio, p.MinAspectRatio, p.MaxAspectRatio)
	}
	return true, fmt.Sprintf("%s at %.3f", describeCodec(track), track.AspectRatio)
}

func (p Profile) audioMatches(track Track) (bool, string) {
	if !codecAllowed(track, p.AudioCodecs) {
		return false, fmt.Sprintf("audio codec %s not supported", describeCodec(track))
	}
	return true, describeCodec(track)
}

func codecAllowed(track Track, allowed []string) bool {
	for _, candidate := range []string{track.CodecID, track.CodecHint} {
		if candidate == "" {
			continue
		}
		if slices.Contains(allowed, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

func describeCodec(track Track) string {
	switch {
	case track.CodecID != "" && track.CodecHint != "" && track.CodecID != track.CodecHint:
		return track.CodecID + "/" + track.CodecHint
	case track.CodecID != "":
		return track.CodecID
	case track.CodecHint != "":
		return track.CodecHint
	default:
		return "unknown"
	}
}
