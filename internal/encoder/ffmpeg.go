package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mert-convert/internal/model"
	"mert-convert/internal/runstore"
)

// FFmpeg probes with ffprobe and encodes VP9/Opus WebM with ffmpeg.
type FFmpeg struct {
	FFmpegBin  string
	FFprobeBin string
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (f FFmpeg) ffmpeg() string {
	if strings.TrimSpace(f.FFmpegBin) != "" {
		return f.FFmpegBin
	}
	return binFFmpeg
}

func (f FFmpeg) ffprobe() string {
	if strings.TrimSpace(f.FFprobeBin) != "" {
		return f.FFprobeBin
	}
	return binFFprobe
}

// ProbeDuration returns the container duration in seconds. A stream that
// reports no duration yields 0 without error.
func (f FFmpeg) ProbeDuration(ctx context.Context, src string) (float64, error) {
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", src}
	out, err := captureOutput(ctx, f.ffprobe(), args)
	if err != nil {
		return 0, err
	}
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, fmt.Errorf("parse ffprobe output for %s: %w", src, err)
	}
	return parseDuration(res.Format.Duration), nil
}

func parseDuration(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (f FFmpeg) EncodeVideo(ctx context.Context, src, dst string, p model.VideoParams, progress func(float64)) (int64, error) {
	return runstore.ReplaceFile(dst, func(tmpPath string) error {
		return runCommand(ctx, f.ffmpeg(), ffmpegArgs(src, tmpPath, p), runOptions{
			OnLine: func(stream OutputStream, line string) {
				if progress == nil || stream != StreamStdout {
					return
				}
				if frac, ok := parseProgressLine(line, p.DurationSeconds); ok {
					progress(frac)
				}
			},
		})
	})
}

func ffmpegArgs(src, out string, p model.VideoParams) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", src,
		"-c:v", "libvpx-vp9",
		"-b:v", fmt.Sprintf("%dk", p.BitrateKbps),
		"-crf", strconv.Itoa(p.CRF),
		"-c:a", "libopus",
		"-b:a", fmt.Sprintf("%dk", p.AudioKbps),
		"-progress", "pipe:1",
		"-nostats",
		"-f", "webm",
		out,
	}
}

// parseProgressLine reads one key=value line of ffmpeg -progress output.
func parseProgressLine(line string, duration float64) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "progress":
		if value == "end" {
			return 1, true
		}
	case "out_time_us", "out_time_ms":
		if duration <= 0 {
			return 0, false
		}
		us, err := strconv.ParseFloat(value, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		frac := us / 1e6 / duration
		if frac > 1 {
			frac = 1
		}
		return frac, true
	}
	return 0, false
}
