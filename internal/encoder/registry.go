package encoder

import (
	"context"
	"fmt"
	"strings"

	"mert-convert/internal/model"
)

const (
	ImageEncoderNative = "native"
	ImageEncoderCWebP  = "cwebp"
)

type ImageEncoder interface {
	Name() string
	Dimensions(ctx context.Context, src string) (model.Geometry, error)
	EncodeImage(ctx context.Context, src, dst string, quality int, geom *model.Geometry) (int64, error)
}

func ImageEncoderNames() []string {
	return []string{ImageEncoderNative, ImageEncoderCWebP}
}

// NewImageEncoder returns the named image backend. cwebp must be on PATH.
func NewImageEncoder(name string) (ImageEncoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ImageEncoderNative:
		return Native{}, nil
	case ImageEncoderCWebP:
		report := DependencyStatus()
		if !report.CWebPFound {
			return nil, fmt.Errorf("missing dependency: cwebp is not installed or not on PATH")
		}
		return CWebP{Bin: report.CWebPPath}, nil
	default:
		return nil, fmt.Errorf("unknown image encoder %q (expected %s)", name, strings.Join(ImageEncoderNames(), " or "))
	}
}
