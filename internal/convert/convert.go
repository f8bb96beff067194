// Package convert runs the size-constrained search for one job: a bounded
// sequence of encodes that trades quality, then resolution, for bytes.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mert-convert/internal/model"
	"mert-convert/internal/runstore"
)

type ImageBackend interface {
	Dimensions(ctx context.Context, src string) (model.Geometry, error)
	EncodeImage(ctx context.Context, src, dst string, quality int, geom *model.Geometry) (int64, error)
}

type VideoBackend interface {
	ProbeDuration(ctx context.Context, src string) (float64, error)
	EncodeVideo(ctx context.Context, src, dst string, p model.VideoParams, progress func(float64)) (int64, error)
}

// Converter dispatches a job to the search for its kind. A nil backend fails
// jobs of that kind instead of panicking.
type Converter struct {
	Images ImageBackend
	Videos VideoBackend
}

func (c Converter) Convert(ctx context.Context, job model.ConversionJob, progress func(float64)) model.Outcome {
	switch job.Kind {
	case model.KindImage:
		if c.Images == nil {
			return failed(job, time.Now(), errors.New("no image encoder configured"), nil)
		}
		return Image(ctx, c.Images, job)
	case model.KindVideo:
		if c.Videos == nil {
			return failed(job, time.Now(), errors.New("video conversion unavailable: ffmpeg/ffprobe not found"), nil)
		}
		return Video(ctx, c.Videos, job, progress)
	default:
		return failed(job, time.Now(), fmt.Errorf("unsupported media kind %q", job.Kind), nil)
	}
}

// prepare checks the preconditions shared by both searches and makes sure the
// output directory exists.
func prepare(job model.ConversionJob) error {
	if job.TargetSizeKB <= 0 {
		return fmt.Errorf("target size must be > 0 KB, got %d", job.TargetSizeKB)
	}
	info, err := os.Stat(job.SourcePath)
	if err != nil {
		return fmt.Errorf("source unavailable: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", job.SourcePath)
	}
	return runstore.Mkdir(filepath.Dir(job.OutputPath))
}

func failed(job model.ConversionJob, start time.Time, err error, attempts []model.EncodeAttempt) model.Outcome {
	return model.Outcome{
		Job:      job,
		Status:   model.StatusFailed,
		Err:      err,
		Attempts: attempts,
		Duration: time.Since(start),
	}
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
