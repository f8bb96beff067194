// Package batch schedules conversion jobs over a bounded worker pool and
// folds their outcomes into one BatchResult.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mert-convert/internal/discovery"
	"mert-convert/internal/logging"
	"mert-convert/internal/model"
	"mert-convert/internal/runstore"
)

// Converter runs the size-constrained search for a single job.
type Converter interface {
	Convert(ctx context.Context, job model.ConversionJob, progress func(float64)) model.Outcome
}

// Reporter receives batch events. All calls come from one goroutine.
type Reporter interface {
	Start(total, workers int)
	JobStarted(job model.ConversionJob)
	JobProgress(job model.ConversionJob, fraction float64)
	JobFinished(o model.Outcome, done, total int)
	Finish(result model.BatchResult)
}

type Options struct {
	Images       []discovery.Asset
	Videos       []discovery.Asset
	Flatten      bool
	OutputDir    string
	TargetSizeKB int
	Quality      int
	Workers      int
	WorkerRatio  float64
	Converter    Converter
	Logger       *slog.Logger
}

type eventKind int

const (
	eventBatchStarted eventKind = iota
	eventStarted
	eventProgress
	eventFinished
)

type event struct {
	kind       eventKind
	job        model.ConversionJob
	fraction   float64
	outcome    model.Outcome
	inputBytes int64
	workers    int
}

// Run converts every asset in opts and returns the aggregated result. Per-job
// failures are reported in the result; only setup problems return an error.
// Cancelling ctx stops new jobs from starting and counts them as skipped;
// jobs already running finish.
func Run(ctx context.Context, opts Options, reporter Reporter) (model.BatchResult, error) {
	if err := validateOptions(opts); err != nil {
		return model.BatchResult{}, err
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	outputDir, err := filepath.Abs(strings.TrimSpace(opts.OutputDir))
	if err != nil {
		return model.BatchResult{}, fmt.Errorf("resolve output directory: %w", err)
	}
	lock, err := runstore.AcquireOutputLock(outputDir)
	if err != nil {
		return model.BatchResult{}, err
	}
	defer func() {
		_ = lock.Release()
	}()

	result := model.BatchResult{BatchID: uuid.NewString(), StartTime: time.Now()}
	logger = logger.With("batch_id", result.BatchID)

	jobs := buildJobs(opts, outputDir)
	workers := WorkerBudget(opts.Workers, opts.WorkerRatio)
	if len(jobs) > 0 && workers > len(jobs) {
		workers = len(jobs)
	}
	result.Workers = workers
	logger.Info("batch started", "jobs", len(jobs), "workers", workers, "output", outputDir)

	events := make(chan event, workers*4)
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		aggregate(events, &result, len(jobs), reporter, logger)
	}()
	events <- event{kind: eventBatchStarted, workers: workers}

	jobCtx := context.WithoutCancel(ctx)
	jobCh := make(chan *model.ConversionJob)
	var g errgroup.Group
	for w := 1; w <= workers; w++ {
		g.Go(func() error {
			for job := range jobCh {
				runJob(jobCtx, opts.Converter, job, events, logger.With("worker", w))
			}
			return nil
		})
	}

	interrupted := 0
dispatch:
	for i := range jobs {
		job := &jobs[i]
		if job.Status == model.StatusSkipped {
			events <- event{kind: eventFinished, job: *job, outcome: skippedOutcome(*job, selfOverwriteWarning(*job))}
			continue
		}
		if ctx.Err() == nil {
			select {
			case jobCh <- job:
				continue
			case <-ctx.Done():
			}
		}
		for j := i; j < len(jobs); j++ {
			rest := &jobs[j]
			warning := ""
			if rest.Status == model.StatusSkipped {
				warning = selfOverwriteWarning(*rest)
			} else {
				_ = model.TransitionJob(rest, model.StatusSkipped)
				interrupted++
			}
			events <- event{kind: eventFinished, job: *rest, outcome: skippedOutcome(*rest, warning)}
		}
		break dispatch
	}
	close(jobCh)
	_ = g.Wait()
	if interrupted > 0 {
		logger.Warn("batch interrupted", "skipped", interrupted, "cause", context.Cause(ctx))
	}
	close(events)
	<-aggDone
	return result, nil
}

func validateOptions(opts Options) error {
	if opts.Converter == nil {
		return errors.New("batch: converter is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return errors.New("batch: output directory is required")
	}
	if opts.TargetSizeKB <= 0 {
		return fmt.Errorf("batch: target size must be > 0 KB, got %d", opts.TargetSizeKB)
	}
	if opts.Quality < 0 || opts.Quality > 100 {
		return fmt.Errorf("batch: quality must be within 0..100, got %d", opts.Quality)
	}
	if opts.Workers < 0 {
		return fmt.Errorf("batch: workers must be >= 0, got %d", opts.Workers)
	}
	return nil
}

// buildJobs creates one pending job per asset, images first. Jobs whose output
// would land on their own source are marked skipped up front.
func buildJobs(opts Options, outputDir string) []model.ConversionJob {
	resolver := NewCollisionResolver()
	assets := make([]discovery.Asset, 0, len(opts.Images)+len(opts.Videos))
	assets = append(assets, opts.Images...)
	assets = append(assets, opts.Videos...)

	jobs := make([]model.ConversionJob, 0, len(assets))
	for i, a := range assets {
		out := resolver.Resolve(a.Path, OutputPathFor(a, outputDir, opts.Flatten))
		job := model.ConversionJob{
			ID:           i + 1,
			SourcePath:   a.Path,
			OutputPath:   out,
			TargetSizeKB: opts.TargetSizeKB,
			Quality:      opts.Quality,
			Kind:         a.Kind,
		}
		_ = model.TransitionJob(&job, model.StatusPending)
		if samePath(job.SourcePath, job.OutputPath) {
			_ = model.TransitionJob(&job, model.StatusSkipped)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return collisionKey(absA) == collisionKey(absB)
}

func selfOverwriteWarning(job model.ConversionJob) string {
	return fmt.Sprintf("%s: skipped; output would overwrite the source", filepath.Base(job.SourcePath))
}

func skippedOutcome(job model.ConversionJob, warning string) model.Outcome {
	return model.Outcome{Job: job, Status: model.StatusSkipped, Warning: warning}
}

func runJob(ctx context.Context, conv Converter, job *model.ConversionJob, events chan<- event, logger *slog.Logger) {
	if err := model.TransitionJob(job, model.StatusRunning); err != nil {
		events <- event{kind: eventFinished, job: *job, outcome: model.Outcome{Job: *job, Status: model.StatusFailed, Err: err}}
		return
	}
	events <- event{kind: eventStarted, job: *job}

	inputBytes, _ := runstore.FileSize(job.SourcePath)
	o := safeConvert(ctx, conv, *job, events, logger)
	if o.Status != model.StatusConverted && o.Status != model.StatusFailed {
		if o.Err == nil {
			o.Err = fmt.Errorf("converter returned unexpected status %q", o.Status)
		}
		o.Status = model.StatusFailed
	}
	_ = model.TransitionJob(job, o.Status)
	o.Job = *job
	events <- event{kind: eventFinished, job: *job, outcome: o, inputBytes: inputBytes}
}

// safeConvert turns a panicking conversion into a failed outcome so the worker
// stays alive for the next job.
func safeConvert(ctx context.Context, conv Converter, job model.ConversionJob, events chan<- event, logger *slog.Logger) (o model.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("conversion panicked", "job", job.ID, "source", job.SourcePath, "panic", r, "stack", string(debug.Stack()))
			o = model.Outcome{
				Job:      job,
				Status:   model.StatusFailed,
				Err:      fmt.Errorf("internal error: %v", r),
				Duration: time.Since(start),
			}
		}
	}()
	progress := func(f float64) {
		events <- event{kind: eventProgress, job: job, fraction: f}
	}
	return conv.Convert(ctx, job, progress)
}

func aggregate(events <-chan event, result *model.BatchResult, total int, reporter Reporter, logger *slog.Logger) {
	done := 0
	for ev := range events {
		switch ev.kind {
		case eventBatchStarted:
			reporter.Start(total, ev.workers)
		case eventStarted:
			reporter.JobStarted(ev.job)
		case eventProgress:
			reporter.JobProgress(ev.job, ev.fraction)
		case eventFinished:
			done++
			o := ev.outcome
			name := filepath.Base(o.Job.SourcePath)
			switch o.Status {
			case model.StatusConverted:
				result.Converted++
				result.InputBytes += ev.inputBytes
				result.OutputBytes += o.SizeBytes
				logger.Info("job converted", "job", o.Job.ID, "kind", o.Job.Kind, "source", o.Job.SourcePath,
					"attempts", len(o.Attempts), "size", o.SizeBytes, "duration", o.Duration)
			case model.StatusFailed:
				result.Failed++
				result.Failures = append(result.Failures, fmt.Sprintf("%s: %s", name, o.Reason()))
				logger.Warn("job failed", "job", o.Job.ID, "kind", o.Job.Kind, "source", o.Job.SourcePath,
					"attempts", len(o.Attempts), "error", o.Reason())
			default:
				result.Skipped++
			}
			if o.Warning != "" {
				result.Warnings = append(result.Warnings, o.Warning)
				logger.Warn("job warning", "job", o.Job.ID, "warning", o.Warning)
			}
			reporter.JobFinished(o, done, total)
		}
	}
	result.FinishedAt = time.Now()
	logger.Info("batch finished", "converted", result.Converted, "failed", result.Failed,
		"skipped", result.Skipped, "elapsed", result.Elapsed())
	reporter.Finish(*result)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) Start(int, int) {}
func (NopReporter) JobStarted(model.ConversionJob) {}
func (NopReporter) JobProgress(model.ConversionJob, float64) {}
func (NopReporter) JobFinished(model.Outcome, int, int) {}
func (NopReporter) Finish(model.BatchResult) {}
