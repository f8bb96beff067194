package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"mert-convert/internal/batch"
	"mert-convert/internal/config"
	"mert-convert/internal/model"
)

func runConvert(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (default: user config dir)")
	input := fs.String("input", "", "file, directory, or space-separated file list")
	media := fs.String("media", mediaImages, "media to convert: images|videos|both")
	maxKB := fs.Int("max-kb", 0, "target size per file in KB (0 = settings default)")
	quality := fs.Int("quality", -1, "initial quality 0..100 (-1 = settings default)")
	output := fs.String("output", "", "output directory (default from settings)")
	workers := fs.Int("workers", 0, "parallel jobs (0 = 75% of available CPUs)")
	imageEncoder := fs.String("image-encoder", "", "image backend: native|cwebp")
	progressMode := fs.String("progress", "auto", "progress display: auto|bar|dashboard|lines|none")
	logLevel := fs.String("log-level", "", "log level: debug|info|warn|error")
	logFile := fs.String("log-file", "", "write logs to this file instead of stderr")
	jsonOut := fs.Bool("json", false, "print the batch result as JSON")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw := strings.TrimSpace(*input)
	if raw == "" && fs.NArg() > 0 {
		raw = strings.Join(fs.Args(), " ")
	}
	if raw == "" {
		return errors.New("--input is required")
	}

	stored, _, err := loadSettings(*configPath)
	if err != nil {
		return err
	}
	overrides := config.Overrides{
		MaxKB:        *maxKB,
		OutputDir:    *output,
		Workers:      *workers,
		ImageEncoder: *imageEncoder,
		LogLevel:     *logLevel,
		LogFile:      *logFile,
	}
	if *quality >= 0 {
		overrides.Quality = quality
	}
	settings, err := stored.Apply(overrides)
	if err != nil {
		return err
	}

	plan := planFromSettings(settings)
	if plan.Media, err = parseMedia(*media); err != nil {
		return err
	}
	if plan.Inputs, plan.Flatten, err = resolveInputs(raw); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(settings, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()

	found, err := discoverPlan(plan)
	if err != nil {
		return err
	}
	if found.Len() == 0 {
		return fmt.Errorf("no %s found under %s", plan.Media, strings.Join(plan.Inputs, ", "))
	}

	reporter, err := selectReporter(*progressMode, *jsonOut)
	if err != nil {
		return err
	}
	result, err := executePlan(ctx, plan, found, reporter, logger)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(result)
	}
	printSummary(os.Stdout, result, ctx.Err() != nil)
	return nil
}

func selectReporter(mode string, jsonOut bool) (batch.Reporter, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "auto" {
		switch {
		case jsonOut:
			mode = "none"
		case stdoutIsTTY():
			mode = "bar"
		default:
			mode = "lines"
		}
	}
	switch mode {
	case "bar":
		return newBarReporter(os.Stderr), nil
	case "dashboard":
		return batch.NewDashboard(os.Stdout), nil
	case "lines":
		return batch.LineReporter{Out: os.Stdout}, nil
	case "none":
		return batch.NopReporter{}, nil
	default:
		return nil, fmt.Errorf("--progress must be auto, bar, dashboard, lines or none, got %q", mode)
	}
}

// barReporter drives a single terminal progress bar; failures are printed
// above it as they happen.
type barReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newBarReporter(out io.Writer) *barReporter {
	return &barReporter{out: out}
}

func (r *barReporter) Start(total, workers int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(fmt.Sprintf("converting (%d workers)", workers)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) JobStarted(model.ConversionJob) {}

func (r *barReporter) JobProgress(model.ConversionJob, float64) {}

func (r *barReporter) JobFinished(o model.Outcome, done, total int) {
	if o.Status == model.StatusFailed {
		_ = r.bar.Clear()
		fmt.Fprintln(r.out, batch.FinishedLine(o, done, total))
	}
	r.bar.Describe(filepath.Base(o.Job.SourcePath))
	_ = r.bar.Add(1)
}

func (r *barReporter) Finish(model.BatchResult) {
	_ = r.bar.Finish()
}
