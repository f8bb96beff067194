package discovery

import (
	"context"
	"os"
	"strings"

	"mert-convert/internal/encoder"
	"mert-convert/internal/runstore"
)

type DoctorOptions struct {
	OutputDir  string
	ConfigPath string
}

type DoctorResult struct {
	OK             bool          `json:"ok"`
	VideoSupported bool          `json:"video_supported"`
	Checks         []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message"`
}

// Doctor checks external tools and the output directory. Missing optional
// tools (ffmpeg, ffprobe, cwebp) only narrow what can be converted, so they
// do not flip OK.
func Doctor(ctx context.Context, opts DoctorOptions) (DoctorResult, error) {
	outputDir := strings.TrimSpace(opts.OutputDir)
	if outputDir == "" {
		outputDir = "converted-media"
	}

	checks := make([]DoctorCheck, 0, 5)
	dep := encoder.DependencyStatus()
	checks = append(checks, DoctorCheck{
		Name:     "dependency:ffmpeg",
		OK:       dep.FFmpegFound,
		Optional: true,
		Message:  toolMessage(ctx, dep.FFmpegFound, dep.FFmpegPath, "ffmpeg", "video conversion disabled"),
	})
	checks = append(checks, DoctorCheck{
		Name:     "dependency:ffprobe",
		OK:       dep.FFprobeFound,
		Optional: true,
		Message:  toolMessage(ctx, dep.FFprobeFound, dep.FFprobePath, "ffprobe", "video conversion disabled"),
	})
	checks = append(checks, DoctorCheck{
		Name:     "dependency:cwebp",
		OK:       dep.CWebPFound,
		Optional: true,
		Message:  dependencyMessage(dep.CWebPFound, dep.CWebPPath, "cwebp", "native image encoder only"),
	})

	outOK, outMessage := ensureWritableDir(outputDir)
	checks = append(checks, DoctorCheck{
		Name:    "directory:output",
		OK:      outOK,
		Message: outMessage,
	})

	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		checks = append(checks, configCheck(cfg))
	}

	ok := true
	for _, c := range checks {
		if !c.OK && !c.Optional {
			ok = false
			break
		}
	}

	return DoctorResult{OK: ok, VideoSupported: dep.VideoSupported(), Checks: checks}, nil
}

func toolMessage(ctx context.Context, ok bool, path, name, missingNote string) string {
	if !ok {
		return dependencyMessage(ok, path, name, missingNote)
	}
	version, err := encoder.ToolVersion(ctx, path)
	if err != nil {
		return name + " found at " + path + " but failed to run: " + firstLine(err.Error())
	}
	if version == "" {
		return dependencyMessage(ok, path, name, missingNote)
	}
	return version + " (" + path + ")"
}

func dependencyMessage(ok bool, path, name, missingNote string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found on PATH (" + missingNote + ")"
}

func configCheck(path string) DoctorCheck {
	check := DoctorCheck{Name: "file:config", Optional: true}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		check.OK = true
		check.Message = path + " not present (defaults in use)"
	case err != nil:
		check.Message = err.Error()
	case info.IsDir():
		check.Message = path + " is a directory"
	default:
		check.OK = true
		check.Message = path
	}
	return check
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "mert-convert-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, path + " writable"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
