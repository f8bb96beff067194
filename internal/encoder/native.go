package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/chai2010/webp"

	"mert-convert/internal/model"
	"mert-convert/internal/runstore"
)

// Native encodes lossy WebP in-process. It needs no external binaries.
type Native struct{}

func (Native) Name() string { return ImageEncoderNative }

func (Native) Dimensions(ctx context.Context, src string) (model.Geometry, error) {
	return imageDimensions(ctx, src)
}

func (Native) EncodeImage(ctx context.Context, src, dst string, quality int, geom *model.Geometry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	img, err := decodeImage(src)
	if err != nil {
		return 0, err
	}
	img = resize(img, geom)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(clampQuality(quality))}); err != nil {
		return 0, fmt.Errorf("webp encode %s: %w", src, err)
	}
	return runstore.ReplaceFile(dst, func(tmpPath string) error {
		return os.WriteFile(tmpPath, buf.Bytes(), 0o644)
	})
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}
