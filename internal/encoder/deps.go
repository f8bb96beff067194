package encoder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	binFFmpeg  = "ffmpeg"
	binFFprobe = "ffprobe"
	binCWebP   = "cwebp"
)

type DependencyReport struct {
	FFmpegFound  bool   `json:"ffmpeg_found"`
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	FFprobeFound bool   `json:"ffprobe_found"`
	FFprobePath  string `json:"ffprobe_path,omitempty"`
	CWebPFound   bool   `json:"cwebp_found"`
	CWebPPath    string `json:"cwebp_path,omitempty"`
}

// VideoSupported reports whether both halves of the video path are present.
func (r DependencyReport) VideoSupported() bool {
	return r.FFmpegFound && r.FFprobeFound
}

func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(binFFmpeg); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	if path, err := exec.LookPath(binFFprobe); err == nil {
		report.FFprobeFound = true
		report.FFprobePath = path
	}
	if path, err := exec.LookPath(binCWebP); err == nil {
		report.CWebPFound = true
		report.CWebPPath = path
	}
	return report
}

func CheckVideoDependencies() error {
	report := DependencyStatus()
	if !report.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is required for video conversion and was not found on PATH")
	}
	if !report.FFprobeFound {
		return fmt.Errorf("missing dependency: ffprobe is required for video conversion and was not found on PATH")
	}
	return nil
}

// CheckFFmpeg runs `ffmpeg -version` and reports whether video conversion can
// be offered. A binary that is on PATH but cannot run counts as absent.
func CheckFFmpeg(ctx context.Context) bool {
	if err := CheckVideoDependencies(); err != nil {
		return false
	}
	_, err := ToolVersion(ctx, binFFmpeg)
	return err == nil
}

// ToolVersion returns the first line printed by `<bin> -version`.
func ToolVersion(ctx context.Context, bin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := captureOutput(ctx, bin, []string{"-version"})
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(line), nil
}
