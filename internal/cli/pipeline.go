package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mert-convert/internal/batch"
	"mert-convert/internal/config"
	"mert-convert/internal/convert"
	"mert-convert/internal/discovery"
	"mert-convert/internal/encoder"
	"mert-convert/internal/model"
)

const (
	mediaImages = "images"
	mediaVideos = "videos"
	mediaBoth   = "both"
)

// conversionPlan is everything the wizard or the run flags resolve to before
// any file is touched.
type conversionPlan struct {
	Inputs       []string
	Flatten      bool
	Media        string
	MaxKB        int
	Quality      int
	OutputDir    string
	Workers      int
	WorkerRatio  float64
	ImageEncoder string
}

func planFromSettings(s config.Settings) conversionPlan {
	return conversionPlan{
		Media:        mediaImages,
		MaxKB:        s.MaxKB,
		Quality:      s.Quality,
		OutputDir:    s.OutputDir,
		Workers:      s.Workers,
		WorkerRatio:  s.WorkerRatio,
		ImageEncoder: s.ImageEncoder,
	}
}

func parseMedia(raw string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "image", mediaImages:
		return mediaImages, nil
	case "video", mediaVideos:
		return mediaVideos, nil
	case mediaBoth, "all":
		return mediaBoth, nil
	default:
		return "", fmt.Errorf("media must be images, videos or both, got %q", raw)
	}
}

func (p conversionPlan) kinds() []model.MediaKind {
	switch p.Media {
	case mediaVideos:
		return []model.MediaKind{model.KindVideo}
	case mediaBoth:
		return []model.MediaKind{model.KindImage, model.KindVideo}
	default:
		return []model.MediaKind{model.KindImage}
	}
}

// resolveInputs validates raw path input the way the wizard prompt does.
// Every listed path must exist.
func resolveInputs(raw string) ([]string, bool, error) {
	set, err := discovery.ValidateMultiplePaths(raw)
	if err != nil {
		return nil, false, err
	}
	if len(set.Invalid) > 0 {
		return nil, false, fmt.Errorf("path not found: %s", strings.Join(set.Invalid, ", "))
	}
	if len(set.Valid) == 0 {
		return nil, false, errors.New("input path is required")
	}
	return set.Valid, set.Multiple, nil
}

// discoverPlan walks the inputs, leaving out the output directory so earlier
// results under an input root are not converted again.
func discoverPlan(p conversionPlan) (discovery.MediaSet, error) {
	return discovery.FindMedia(p.Inputs, []string{p.OutputDir}, p.kinds()...)
}

func executePlan(ctx context.Context, p conversionPlan, media discovery.MediaSet, reporter batch.Reporter, logger *slog.Logger) (model.BatchResult, error) {
	images, err := encoder.NewImageEncoder(p.ImageEncoder)
	if err != nil {
		return model.BatchResult{}, err
	}
	conv := convert.Converter{Images: images}
	if len(media.Videos) > 0 {
		if err := encoder.CheckVideoDependencies(); err != nil {
			return model.BatchResult{}, err
		}
		conv.Videos = encoder.FFmpeg{}
	}
	logger.Debug("plan resolved",
		"inputs", len(p.Inputs),
		"images", len(media.Images),
		"videos", len(media.Videos),
		"max_kb", p.MaxKB,
		"quality", p.Quality,
		"image_encoder", images.Name(),
	)
	return batch.Run(ctx, batch.Options{
		Images:       media.Images,
		Videos:       media.Videos,
		Flatten:      p.Flatten,
		OutputDir:    p.OutputDir,
		TargetSizeKB: p.MaxKB,
		Quality:      p.Quality,
		Workers:      p.Workers,
		WorkerRatio:  p.WorkerRatio,
		Converter:    conv,
		Logger:       logger,
	}, reporter)
}
