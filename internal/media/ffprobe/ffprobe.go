package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index              int    `json:"index"`
	CodecName          string `json:"codec_name"`
	CodecType          string `json:"codec_type"`
	CodecTag           string `json:"codec_tag_string"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	SampleAspectRatio  string `json:"sample_aspect_ratio"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
	Channels           int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, detail)
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON document.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), data...)
	return result, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countType("audio")
}

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// AspectRatio returns the display aspect ratio of a video stream. It prefers
// display_aspect_ratio and falls back to width/height scaled by the sample
// aspect ratio. ok is false when neither yields a usable positive value.
func (s Stream) AspectRatio() (float64, bool) {
	if ratio, ok := ParseRatio(s.DisplayAspectRatio); ok {
		return ratio, true
	}
	if s.Width <= 0 || s.Height <= 0 {
		return 0, false
	}
	ratio := float64(s.Width) / float64(s.Height)
	if sar, ok := ParseRatio(s.SampleAspectRatio); ok {
		ratio *= sar
	}
	return ratio, true
}

// ParseRatio parses "W:H", "W/H", or a plain decimal. Zero, negative, and
// non-numeric inputs (including ffprobe's "0:1" and "N/A") are rejected.
func ParseRatio(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	sep := strings.IndexAny(value, ":/")
	if sep < 0 {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
			return 0, false
		}
		return parsed, true
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(value[:sep]), 64)
	if err != nil {
		return 0, false
	}
	den, err := strconv.ParseFloat(strings.TrimSpace(value[sep+1:]), 64)
	if err != nil || den == 0 {
		return 0, false
	}
	ratio := num / den
	if ratio <= 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return 0, false
	}
	return ratio, true
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
