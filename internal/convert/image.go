package convert

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"mert-convert/internal/model"
)

const (
	// An encode fits when it is at most 5% over the byte budget.
	sizeTolerance = 1.05

	qualityStep        = 10
	qualityFloor       = 10
	maxQualityAttempts = 10

	geometryQuality     = 50
	maxGeometryAttempts = 4
	geometryMargin      = 0.9
	maxScaleStep        = 0.95
	minDimension        = 200

	lastResortQuality = 5
)

// MaxImageAttempts bounds the encodes a single image can trigger.
const MaxImageAttempts = maxQualityAttempts + maxGeometryAttempts + 1

// Image searches for a WebP encode of job.SourcePath that fits
// job.TargetSizeKB. It always leaves a file at job.OutputPath unless the
// backend itself fails; an unmet budget is reported as a warning on a
// converted outcome.
func Image(ctx context.Context, backend ImageBackend, job model.ConversionJob) model.Outcome {
	start := time.Now()
	var attempts []model.EncodeAttempt
	if err := prepare(job); err != nil {
		return failed(job, start, err, nil)
	}

	limit := int64(float64(job.TargetBytes()) * sizeTolerance)
	initial := clampQuality(job.Quality)

	encode := func(phase model.AttemptPhase, q int, geom *model.Geometry) (int64, error) {
		size, err := backend.EncodeImage(ctx, job.SourcePath, job.OutputPath, q, geom)
		if err != nil {
			return 0, err
		}
		attempts = append(attempts, model.EncodeAttempt{Phase: phase, Quality: q, Geometry: geom, SizeBytes: size})
		return size, nil
	}
	finish := func(size int64, q int, geom *model.Geometry) model.Outcome {
		o := model.Outcome{
			Job:       job,
			Status:    model.StatusConverted,
			Attempts:  attempts,
			SizeBytes: size,
			Duration:  time.Since(start),
		}
		if size > limit {
			o.Warning = fmt.Sprintf("%s: target %s not reached; kept %s at %s quality %d",
				filepath.Base(job.SourcePath), humanize.IBytes(uint64(job.TargetBytes())), humanize.IBytes(uint64(size)), geom.String(), q)
		}
		return o
	}

	quality := initial
	var size int64
	for i := 0; i < maxQualityAttempts; i++ {
		var err error
		size, err = encode(model.PhaseQuality, quality, nil)
		if err != nil {
			return failed(job, start, err, attempts)
		}
		if size <= limit {
			return finish(size, quality, nil)
		}
		if quality <= qualityFloor {
			break
		}
		quality = max(quality-qualityStep, qualityFloor)
	}

	dims, err := backend.Dimensions(ctx, job.SourcePath)
	if err != nil {
		return failed(job, start, err, attempts)
	}
	minScale := MinScale(dims)

	geomQuality := min(geometryQuality, initial)
	scale := 1.0
	for i := 0; i < maxGeometryAttempts && minScale < 1; i++ {
		next := NextScale(scale, job.TargetBytes(), size, minScale)
		geom := Scaled(dims, next)
		size, err = encode(model.PhaseGeometry, geomQuality, &geom)
		if err != nil {
			return failed(job, start, err, attempts)
		}
		if size <= limit {
			return finish(size, geomQuality, &geom)
		}
		scale = next
		if scale <= minScale {
			break
		}
	}

	var floorGeom *model.Geometry
	if minScale < 1 {
		g := Scaled(dims, minScale)
		floorGeom = &g
	}
	finalQuality := min(lastResortQuality, initial)
	size, err = encode(model.PhaseLastResort, finalQuality, floorGeom)
	if err != nil {
		return failed(job, start, err, attempts)
	}
	return finish(size, finalQuality, floorGeom)
}

// MinScale is the smallest scale that keeps both sides at or above the
// geometry floor. Sources already below the floor get 1 and are never
// resized.
func MinScale(dims model.Geometry) float64 {
	if dims.Width <= 0 || dims.Height <= 0 {
		return 1
	}
	s := math.Max(float64(minDimension)/float64(dims.Width), float64(minDimension)/float64(dims.Height))
	if s > 1 {
		return 1
	}
	return s
}

// NextScale estimates the scale that brings size under target, assuming
// bytes grow with pixel area. The step always shrinks by at least 5% and
// never goes below minScale.
func NextScale(current float64, target, size int64, minScale float64) float64 {
	next := current * maxScaleStep
	if size > 0 && target > 0 {
		next = math.Min(next, current*math.Sqrt(float64(target)/float64(size))*geometryMargin)
	}
	if next < minScale {
		next = minScale
	}
	return next
}

func Scaled(dims model.Geometry, scale float64) model.Geometry {
	w := int(math.Round(float64(dims.Width) * scale))
	h := int(math.Round(float64(dims.Height) * scale))
	return model.Geometry{Width: max(w, 1), Height: max(h, 1)}
}
