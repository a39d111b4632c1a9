// Package media wraps ffmpeg/ffprobe for transcoding downloaded files.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Preset is an encoding quality preset
type Preset struct {
	Bitrate    string // empty for lossless codecs
	SampleRate int
}

// Presets by quality name
var Presets = map[string]Preset{
	"low":      {Bitrate: "128k", SampleRate: 44100},
	"medium":   {Bitrate: "192k", SampleRate: 44100},
	"high":     {Bitrate: "320k", SampleRate: 48000},
	"lossless": {SampleRate: 48000},
}

var codecs = map[string]string{
	"mp3":  "libmp3lame",
	"m4a":  "aac",
	"flac": "flac",
	"wav":  "pcm_s16le",
	"ogg":  "libvorbis",
}

// PresetFor maps an API quality (128k, 192k, 320k, best) to a preset name
func PresetFor(quality string) string {
	switch quality {
	case "128k":
		return "low"
	case "320k":
		return "high"
	case "best":
		return "lossless"
	}
	return "medium"
}

// IsSupportedFormat checks if format can be produced by Convert
func IsSupportedFormat(format string) bool {
	_, ok := codecs[strings.ToLower(format)]
	return ok
}

// Converter runs ffmpeg and ffprobe
type Converter struct {
	ffmpeg  string
	ffprobe string
}

// NewConverter creates a converter. An empty ffmpegPath looks up ffmpeg on
// PATH; ffprobe is expected next to it.
func NewConverter(ffmpegPath string) *Converter {
	ffmpeg := ffmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := "ffprobe"
	if dir := filepath.Dir(ffmpegPath); ffmpegPath != "" && dir != "." {
		ffprobe = filepath.Join(dir, "ffprobe")
	}
	return &Converter{ffmpeg: ffmpeg, ffprobe: ffprobe}
}

// Available reports whether ffmpeg can be found
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.ffmpeg)
	return err == nil
}

// Args builds the ffmpeg arguments for a conversion
func Args(inputPath, outputPath, format, preset string) ([]string, error) {
	codec, ok := codecs[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	p, ok := Presets[preset]
	if !ok {
		p = Presets["medium"]
	}

	args := []string{"-i", inputPath, "-vn", "-acodec", codec}
	if p.Bitrate != "" && codec != "flac" && codec != "pcm_s16le" {
		args = append(args, "-b:a", p.Bitrate)
	}
	args = append(args,
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", "2",
		"-y",
		outputPath,
	)
	return args, nil
}

// Convert transcodes inputPath into format next to it and returns the new path.
// The input file is removed on success.
func (c *Converter) Convert(ctx context.Context, inputPath, format, quality string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("ffmpeg not found: please install ffmpeg to convert audio files")
	}
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return "", fmt.Errorf("input file not found: %s", inputPath)
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + strings.ToLower(format)
	if outputPath == inputPath {
		return inputPath, nil
	}

	args, err := Args(inputPath, outputPath, format, PresetFor(quality))
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg conversion failed: %w\nOutput: %s", err, tail(string(output), 5))
	}

	os.Remove(inputPath)
	return outputPath, nil
}

// Duration returns the duration of a media file
func (c *Converter) Duration(ctx context.Context, inputPath string) (time.Duration, error) {
	if _, err := exec.LookPath(c.ffprobe); err != nil {
		return 0, fmt.Errorf("ffprobe not found: please install ffmpeg")
	}

	cmd := exec.CommandContext(ctx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to get media duration: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
