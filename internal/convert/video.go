package convert

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"mert-convert/internal/model"
)

const (
	defaultVideoDuration = 60.0
	videoAudioKbps       = 128
	// VP9 CRF runs 0..63; quality 100 maps to 0.
	crfPerQualityPoint = 0.63
)

// Video transcodes job to VP9/Opus WebM in a single pass. The bitrate is
// derived from the byte budget and probed duration; the result size is not
// checked afterwards, unlike Image.
func Video(ctx context.Context, backend VideoBackend, job model.ConversionJob, progress func(float64)) model.Outcome {
	start := time.Now()
	if err := prepare(job); err != nil {
		return failed(job, start, err, nil)
	}

	duration, err := backend.ProbeDuration(ctx, job.SourcePath)
	if err != nil {
		return failed(job, start, fmt.Errorf("probe %s: %w", filepath.Base(job.SourcePath), err), nil)
	}
	params := VideoParamsFor(job.TargetSizeKB, job.Quality, duration)

	size, err := backend.EncodeVideo(ctx, job.SourcePath, job.OutputPath, params, progress)
	if err != nil {
		return failed(job, start, fmt.Errorf("encode %s: %w", filepath.Base(job.SourcePath), err), nil)
	}
	return model.Outcome{
		Job:    job,
		Status: model.StatusConverted,
		Attempts: []model.EncodeAttempt{{
			Phase:     model.PhaseVideo,
			Quality:   clampQuality(job.Quality),
			SizeBytes: size,
		}},
		SizeBytes: size,
		Duration:  time.Since(start),
	}
}

// VideoParamsFor maps a budget and quality hint onto encoder settings. A
// zero, negative or NaN duration is treated as 60 seconds.
func VideoParamsFor(targetKB, quality int, duration float64) model.VideoParams {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = defaultVideoDuration
	}
	bitrate := int(math.Floor(float64(targetKB) * 8 / duration))
	if bitrate < 1 {
		// libvpx treats -b:v 0 as unconstrained constant quality.
		bitrate = 1
	}
	return model.VideoParams{
		DurationSeconds: duration,
		BitrateKbps:     bitrate,
		CRF:             int(math.Floor(float64(100-clampQuality(quality)) * crfPerQualityPoint)),
		AudioKbps:       videoAudioKbps,
	}
}
