package batch

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mert-convert/internal/model"
)

const dashboardEvents = 8

type activeJob struct {
	job      model.ConversionJob
	started  time.Time
	fraction float64
}

// Dashboard is a full-screen ANSI reporter that redraws the active jobs and
// the latest finished ones every 700ms.
type Dashboard struct {
	mu  sync.Mutex
	out io.Writer

	active map[int]*activeJob
	events []string

	total     int
	done      int
	failed    int
	skipped   int
	workersN  int
	startedAt time.Time

	stop    chan struct{}
	stopped chan struct{}
}

func NewDashboard(out io.Writer) *Dashboard {
	return &Dashboard{
		out:     out,
		active:  make(map[int]*activeJob),
		events:  make([]string, 0, dashboardEvents),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (d *Dashboard) Start(total, workers int) {
	d.mu.Lock()
	d.total = total
	d.workersN = workers
	d.startedAt = time.Now()
	d.mu.Unlock()

	go func() {
		defer close(d.stopped)
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				d.render()
			}
		}
	}()
}

func (d *Dashboard) JobStarted(job model.ConversionJob) {
	d.mu.Lock()
	d.active[job.ID] = &activeJob{job: job, started: time.Now()}
	d.mu.Unlock()
}

func (d *Dashboard) JobProgress(job model.ConversionJob, fraction float64) {
	d.mu.Lock()
	if a, ok := d.active[job.ID]; ok {
		a.fraction = fraction
	}
	d.mu.Unlock()
}

func (d *Dashboard) JobFinished(o model.Outcome, done, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, o.Job.ID)
	d.done = done
	switch o.Status {
	case model.StatusFailed:
		d.failed++
	case model.StatusSkipped:
		d.skipped++
	}
	d.events = append([]string{FinishedLine(o, done, total)}, d.events...)
	if len(d.events) > dashboardEvents {
		d.events = d.events[:dashboardEvents]
	}
}

func (d *Dashboard) Finish(model.BatchResult) {
	close(d.stop)
	<-d.stopped
	d.render()
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]int, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	etaPart := " | eta ~ calculating"
	if eta := EstimateETA(time.Since(d.startedAt), d.done, d.total); eta != "" {
		etaPart = " | eta ~ " + eta
	}
	fmt.Fprintf(&b, "mert-convert live | active %d/%d | done %d/%d | failed %d | skipped %d%s\n",
		len(ids), d.workersN, d.done, d.total, d.failed, d.skipped, etaPart)
	b.WriteString(strings.Repeat("-", 100) + "\n")

	if len(ids) == 0 {
		b.WriteString("(no active jobs)\n")
	} else {
		for _, id := range ids {
			a := d.active[id]
			pct := "      "
			if a.job.Kind == model.KindVideo {
				pct = fmt.Sprintf("%5.1f%%", a.fraction*100)
			}
			fmt.Fprintf(&b, "#%-4d %-5s %s  %6s  %s\n", id, a.job.Kind, pct,
				time.Since(a.started).Truncate(time.Second), filepath.Base(a.job.SourcePath))
		}
	}

	if len(d.events) > 0 {
		b.WriteString(strings.Repeat("-", 100) + "\n")
		for _, e := range d.events {
			b.WriteString(e + "\n")
		}
	}

	_, _ = io.WriteString(d.out, b.String())
}

// FinishedLine is the one-line record printed for a finished job.
func FinishedLine(o model.Outcome, done, total int) string {
	name := filepath.Base(o.Job.SourcePath)
	switch o.Status {
	case model.StatusConverted:
		return fmt.Sprintf("[%d/%d] done  %s", done, total, name)
	case model.StatusFailed:
		return fmt.Sprintf("[%d/%d] fail  %s: %s", done, total, name, o.Reason())
	default:
		return fmt.Sprintf("[%d/%d] skip  %s", done, total, name)
	}
}

// EstimateETA extrapolates the remaining time from the average time per
// finished job so far. It returns "" until at least one job has finished.
func EstimateETA(elapsed time.Duration, done, total int) string {
	if done <= 0 || total <= 0 || elapsed <= 0 {
		return ""
	}
	remaining := total - done
	if remaining <= 0 {
		return "0m"
	}
	return formatETASeconds(elapsed.Seconds() / float64(done) * float64(remaining))
}

func formatETASeconds(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	secs := int64(math.Round(seconds))
	if secs < 60 {
		return "<1m"
	}
	minutes := secs / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	remMinutes := minutes % 60
	if hours < 24 {
		if remMinutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh %dm", hours, remMinutes)
	}
	days := hours / 24
	remHours := hours % 24
	if remHours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, remHours)
}

// LineReporter prints one line per finished job. It suits pipes and logs
// where redrawing is not possible.
type LineReporter struct {
	Out io.Writer
}

func (r LineReporter) Start(total, workers int) {
	fmt.Fprintf(r.Out, "converting %d file(s) with %d worker(s)\n", total, workers)
}

func (LineReporter) JobStarted(model.ConversionJob) {}

func (LineReporter) JobProgress(model.ConversionJob, float64) {}

func (r LineReporter) JobFinished(o model.Outcome, done, total int) {
	fmt.Fprintln(r.Out, FinishedLine(o, done, total))
}

func (LineReporter) Finish(model.BatchResult) {}
