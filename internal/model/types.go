package model

import (
	"fmt"
	"time"
)

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// OutputExt is the container extension every job of this kind is written with.
func (k MediaKind) OutputExt() string {
	if k == KindVideo {
		return ".webm"
	}
	return ".webp"
}

// Geometry is a target pixel size. A nil *Geometry means the source size.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (g *Geometry) String() string {
	if g == nil {
		return "source size"
	}
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// ConversionJob is one source file scheduled for re-encoding. Jobs are built
// by the batch scheduler and handed to exactly one search.
type ConversionJob struct {
	ID           int       `json:"id"`
	SourcePath   string    `json:"source_path"`
	OutputPath   string    `json:"output_path"`
	TargetSizeKB int       `json:"target_size_kb"`
	Quality      int       `json:"quality"`
	Kind         MediaKind `json:"kind"`
	Status       string    `json:"status"`
}

func (j ConversionJob) TargetBytes() int64 {
	return int64(j.TargetSizeKB) * 1024
}

type AttemptPhase string

const (
	PhaseQuality    AttemptPhase = "quality"
	PhaseGeometry   AttemptPhase = "geometry"
	PhaseLastResort AttemptPhase = "last_resort"
	PhaseVideo      AttemptPhase = "video"
)

// VideoParams are the rate-control inputs for a single VP9/Opus encode.
type VideoParams struct {
	DurationSeconds float64 `json:"duration_seconds"`
	BitrateKbps     int     `json:"bitrate_kbps"`
	CRF             int     `json:"crf"`
	AudioKbps       int     `json:"audio_kbps"`
}

type EncodeAttempt struct {
	Phase     AttemptPhase `json:"phase"`
	Quality   int          `json:"quality"`
	Geometry  *Geometry    `json:"geometry,omitempty"`
	SizeBytes int64        `json:"size_bytes"`
}

// Outcome is the single terminal record produced for every job.
type Outcome struct {
	Job       ConversionJob   `json:"job"`
	Status    string          `json:"status"`
	Warning   string          `json:"warning,omitempty"`
	Err       error           `json:"-"`
	Attempts  []EncodeAttempt `json:"attempts,omitempty"`
	SizeBytes int64           `json:"size_bytes"`
	Duration  time.Duration   `json:"duration"`
}

func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// BatchResult is written only by the scheduler's aggregator.
type BatchResult struct {
	BatchID     string    `json:"batch_id"`
	Converted   int       `json:"converted"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	StartTime   time.Time `json:"start_time"`
	FinishedAt  time.Time `json:"finished_at"`
	Warnings    []string  `json:"warnings"`
	Failures    []string  `json:"failures"`
	InputBytes  int64     `json:"input_bytes"`
	OutputBytes int64     `json:"output_bytes"`
	Workers     int       `json:"workers"`
}

func (r BatchResult) Total() int {
	return r.Converted + r.Failed + r.Skipped
}

func (r BatchResult) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.FinishedAt.Sub(r.StartTime)
}
