package encoder

import (
	"bufio"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"

	"mert-convert/internal/model"
)

func writeFakeBin(t *testing.T, dir, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8((x + y) * 3), A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestSplitByNewlineOrCR(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("frame=1\rframe=2\nprogress=end"))
	scanner.Split(splitByNewlineOrCR)
	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	want := []string{"frame=1", "frame=2", "progress=end"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected tokens %q", got)
	}
}

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line     string
		duration float64
		want     float64
		ok       bool
	}{
		{"out_time_us=5000000", 10, 0.5, true},
		{"out_time_ms=20000000", 10, 1, true},
		{"out_time_us=5000000", 0, 0, false},
		{"progress=end", 0, 1, true},
		{"progress=continue", 10, 0, false},
		{"bitrate=12.0kbits/s", 10, 0, false},
		{"garbage", 10, 0, false},
	}
	for _, tc := range cases {
		got, ok := parseProgressLine(tc.line, tc.duration)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: got (%v,%v) want (%v,%v)", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFFmpegArgsCarryRateControl(t *testing.T) {
	args := strings.Join(ffmpegArgs("in.mp4", "out.webm", model.VideoParams{BitrateKbps: 13, CRF: 0, AudioKbps: 128}), " ")
	for _, want := range []string{"-c:v libvpx-vp9", "-b:v 13k", "-crf 0", "-c:a libopus", "-b:a 128k", "-f webm"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
}

func TestCWebPArgs(t *testing.T) {
	got := strings.Join(cwebpArgs("a.png", "o.webp", 140, &model.Geometry{Width: 300, Height: 200}), " ")
	want := "-quiet -metadata none -q 100 -resize 300 200 a.png -o o.webp"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	got = strings.Join(cwebpArgs("a.png", "o.webp", 40, nil), " ")
	if strings.Contains(got, "-resize") {
		t.Fatalf("unexpected resize in %q", got)
	}
}

func TestProbeDurationParsesFormatDuration(t *testing.T) {
	tmp := t.TempDir()
	writeFakeBin(t, tmp, "ffprobe", `#!/usr/bin/env bash
set -euo pipefail
case "${@: -1}" in
  *na.mp4) echo '{"format":{"duration":"N/A"}}' ;;
  *bad.mp4) echo "Invalid data found when processing input" >&2; exit 1 ;;
  *) echo '{"format":{"filename":"x","duration":"12.500000"}}' ;;
esac
`)
	t.Setenv("PATH", tmp+":"+os.Getenv("PATH"))

	ff := FFmpeg{}
	d, err := ff.ProbeDuration(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if d != 12.5 {
		t.Fatalf("expected 12.5, got %v", d)
	}

	d, err = ff.ProbeDuration(context.Background(), "na.mp4")
	if err != nil || d != 0 {
		t.Fatalf("expected zero duration without error, got %v err=%v", d, err)
	}

	if _, err := ff.ProbeDuration(context.Background(), "bad.mp4"); err == nil || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected probe failure carrying stderr, got %v", err)
	}
}

func TestEncodeVideoWritesOutputAndReportsProgress(t *testing.T) {
	tmp := t.TempDir()
	writeFakeBin(t, tmp, "ffmpeg", `#!/usr/bin/env bash
set -euo pipefail
out="${@: -1}"
printf 'webm-bytes' > "$out"
echo "out_time_us=1000000"
echo "progress=end"
`)
	t.Setenv("PATH", tmp+":"+os.Getenv("PATH"))

	dst := filepath.Join(tmp, "out", "clip.webm")
	var last float64
	size, err := FFmpeg{}.EncodeVideo(context.Background(), "clip.mp4", dst, model.VideoParams{DurationSeconds: 2, BitrateKbps: 10, AudioKbps: 128}, func(f float64) {
		last = f
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if size != int64(len("webm-bytes")) {
		t.Fatalf("unexpected size %d", size)
	}
	if last != 1 {
		t.Fatalf("expected final progress 1, got %v", last)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestEncodeVideoFailureLeavesNoOutput(t *testing.T) {
	tmp := t.TempDir()
	writeFakeBin(t, tmp, "ffmpeg", `#!/usr/bin/env bash
set -euo pipefail
echo "Unknown encoder 'libvpx-vp9'" >&2
exit 1
`)
	t.Setenv("PATH", tmp+":"+os.Getenv("PATH"))

	dst := filepath.Join(tmp, "clip.webm")
	if _, err := (FFmpeg{}).EncodeVideo(context.Background(), "clip.mp4", dst, model.VideoParams{BitrateKbps: 1}, nil); err == nil {
		t.Fatalf("expected encode failure")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no output after failure, stat err=%v", err)
	}
}

func TestCWebPEncodeUsesResizeAndStagesUnsupportedInputs(t *testing.T) {
	tmp := t.TempDir()
	argsLog := filepath.Join(tmp, "args.log")
	writeFakeBin(t, tmp, "cwebp", `#!/usr/bin/env bash
set -euo pipefail
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
echo "$@" >> "$CWEBP_ARGS_LOG"
printf 'RIFFfake' > "$out"
`)
	t.Setenv("PATH", tmp+":"+os.Getenv("PATH"))
	t.Setenv("CWEBP_ARGS_LOG", argsLog)

	src := filepath.Join(tmp, "photo.png")
	writePNG(t, src, 40, 30)

	enc, err := NewImageEncoder("cwebp")
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	dims, err := enc.Dimensions(context.Background(), src)
	if err != nil || dims.Width != 40 || dims.Height != 30 {
		t.Fatalf("unexpected dims %+v err=%v", dims, err)
	}

	dst := filepath.Join(tmp, "out", "photo.webp")
	size, err := enc.EncodeImage(context.Background(), src, dst, 55, &model.Geometry{Width: 20, Height: 15})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if size != int64(len("RIFFfake")) {
		t.Fatalf("unexpected size %d", size)
	}
	logged, _ := os.ReadFile(argsLog)
	if !strings.Contains(string(logged), "-q 55 -resize 20 15 "+src) {
		t.Fatalf("unexpected cwebp args %q", logged)
	}

	gifSrc := filepath.Join(tmp, "anim.gif")
	gf, err := os.Create(gifSrc)
	if err != nil {
		t.Fatal(err)
	}
	if err := gif.Encode(gf, image.NewPaletted(image.Rect(0, 0, 10, 10), color.Palette{color.Black, color.White}), nil); err != nil {
		t.Fatal(err)
	}
	_ = gf.Close()
	if _, err := enc.EncodeImage(context.Background(), gifSrc, filepath.Join(tmp, "out", "anim.webp"), 50, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	logged, _ = os.ReadFile(argsLog)
	lines := strings.Split(strings.TrimSpace(string(logged)), "\n")
	if last := lines[len(lines)-1]; !strings.Contains(last, "mert-stage-") || strings.Contains(last, gifSrc) {
		t.Fatalf("expected gif to be staged as png, got %q", last)
	}
}

func TestNewImageEncoderRejectsUnknown(t *testing.T) {
	if _, err := NewImageEncoder("gimp"); err == nil {
		t.Fatalf("expected unknown encoder error")
	}
	enc, err := NewImageEncoder("")
	if err != nil || enc.Name() != ImageEncoderNative {
		t.Fatalf("expected native default, got %v err=%v", enc, err)
	}
}

func TestNativeEncodeResizesAndWritesWebP(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "photo.png")
	writePNG(t, src, 64, 48)

	dst := filepath.Join(tmp, "out", "photo.webp")
	size, err := Native{}.EncodeImage(context.Background(), src, dst, 60, &model.Geometry{Width: 32, Height: 24})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if size <= 0 {
		t.Fatalf("expected non-empty output")
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 24 {
		t.Fatalf("expected 32x24 output, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestNativeEncodeRejectsCorruptSource(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "broken.png")
	if err := os.WriteFile(src, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(tmp, "broken.webp")
	if _, err := (Native{}).EncodeImage(context.Background(), src, dst, 80, nil); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no output for corrupt source")
	}
}
