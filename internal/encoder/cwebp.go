package encoder

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mert-convert/internal/model"
	"mert-convert/internal/runstore"
)

// cwebp reads these directly; anything else is decoded here and handed over
// as a temporary PNG.
var cwebpInputs = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// CWebP shells out to libwebp's cwebp tool.
type CWebP struct {
	Bin string
}

func (c CWebP) Name() string { return ImageEncoderCWebP }

func (c CWebP) bin() string {
	if strings.TrimSpace(c.Bin) != "" {
		return c.Bin
	}
	return binCWebP
}

func (c CWebP) Dimensions(ctx context.Context, src string) (model.Geometry, error) {
	return imageDimensions(ctx, src)
}

func (c CWebP) EncodeImage(ctx context.Context, src, dst string, quality int, geom *model.Geometry) (int64, error) {
	input := src
	if !cwebpInputs[strings.ToLower(filepath.Ext(src))] {
		staged, cleanup, err := stageAsPNG(src)
		if err != nil {
			return 0, err
		}
		defer cleanup()
		input = staged
	}

	return runstore.ReplaceFile(dst, func(tmpPath string) error {
		return runCommand(ctx, c.bin(), cwebpArgs(input, tmpPath, quality, geom), runOptions{})
	})
}

func cwebpArgs(src, out string, quality int, geom *model.Geometry) []string {
	args := []string{"-quiet", "-metadata", "none", "-q", strconv.Itoa(clampQuality(quality))}
	if geom != nil {
		args = append(args, "-resize", strconv.Itoa(geom.Width), strconv.Itoa(geom.Height))
	}
	return append(args, src, "-o", out)
}

func stageAsPNG(src string) (string, func(), error) {
	img, err := decodeImage(src)
	if err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp("", "mert-stage-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("stage %s: %w", src, err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("stage %s as png: %w", src, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("stage %s: %w", src, err)
	}
	return f.Name(), cleanup, nil
}
