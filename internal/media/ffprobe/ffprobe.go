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
	"time"
)

// DefaultProbeTimeout bounds the duration query.
const DefaultProbeTimeout = 30 * time.Second

// HLGTransfer is the ffprobe name of the ARIB STD-B67 (HLG) transfer function.
const HLGTransfer = "arib-std-b67"

var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index          int    `json:"index"`
	CodecName      string `json:"codec_name"`
	CodecType      string `json:"codec_type"`
	CodecTag       string `json:"codec_tag_string"`
	Duration       string `json:"duration"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	PixFmt         string `json:"pix_fmt"`
	ColorPrimaries string `json:"color_primaries"`
	ColorTransfer  string `json:"color_transfer"`
	ColorSpace     string `json:"color_space"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// HDRMetadata reports the color tagging of the first video stream.
type HDRMetadata struct {
	ColorPrimaries string `json:"color_primaries"`
	ColorTransfer  string `json:"color_transfer"`
	ColorSpace     string `json:"color_space"`
	PixFmt         string `json:"pix_fmt"`
	IsHDR          bool   `json:"is_hdr"`
}

// ProbeDuration returns the container duration of path in seconds. A
// non-positive timeout uses DefaultProbeTimeout. Any probe failure, including
// an empty or non-positive value, yields (0, false).
func ProbeDuration(ctx context.Context, binary, path string, timeout time.Duration) (float64, bool) {
	binary = strings.TrimSpace(binary)
	if binary == "" || strings.TrimSpace(path) == "" {
		return 0, false
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := commandContext(probeCtx, binary,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, false
	}
	duration := parseFloat(string(output))
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, false
	}
	return duration, true
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	return run(ctx, binary, path, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json")
}

// VerifyHDR reports the color metadata of the first video stream in path.
func VerifyHDR(ctx context.Context, binary, path string) (HDRMetadata, error) {
	result, err := run(ctx, binary, path,
		"-v", "quiet",
		"-select_streams", "v:0",
		"-show_entries", "stream=color_primaries,color_transfer,color_space,pix_fmt",
		"-of", "json",
	)
	if err != nil {
		return HDRMetadata{}, err
	}
	if len(result.Streams) == 0 {
		return HDRMetadata{}, errors.New("ffprobe verify: no video stream")
	}
	stream := result.Streams[0]
	return HDRMetadata{
		ColorPrimaries: orUnknown(stream.ColorPrimaries),
		ColorTransfer:  orUnknown(stream.ColorTransfer),
		ColorSpace:     orUnknown(stream.ColorSpace),
		PixFmt:         orUnknown(stream.PixFmt),
		IsHDR:          stream.ColorTransfer == HLGTransfer,
	}, nil
}

func run(ctx context.Context, binary, path string, args ...string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args = append(args, "--", path)
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream.
func (r Result) VideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
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
