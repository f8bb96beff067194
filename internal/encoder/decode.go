package encoder

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"mert-convert/internal/model"
)

func imageDimensions(ctx context.Context, src string) (model.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return model.Geometry{}, err
	}
	f, err := os.Open(src)
	if err != nil {
		return model.Geometry{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return model.Geometry{}, fmt.Errorf("read dimensions of %s: %w", src, err)
	}
	return model.Geometry{Width: cfg.Width, Height: cfg.Height}, nil
}

func decodeImage(src string) (image.Image, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

// resize scales img to geom with Catmull-Rom resampling. A nil geometry or
// one equal to the source bounds returns img unchanged.
func resize(img image.Image, geom *model.Geometry) image.Image {
	if geom == nil || geom.Width <= 0 || geom.Height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == geom.Width && b.Dy() == geom.Height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, geom.Width, geom.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
