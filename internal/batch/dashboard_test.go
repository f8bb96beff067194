package batch

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mert-convert/internal/model"
)

func TestEstimateETA(t *testing.T) {
	if got := EstimateETA(10*time.Minute, 1, 7); got != "1h" {
		t.Fatalf("expected 1h, got %q", got)
	}
	if got := EstimateETA(10*time.Second, 5, 6); got != "<1m" {
		t.Fatalf("expected <1m, got %q", got)
	}
	if got := EstimateETA(time.Minute, 4, 4); got != "0m" {
		t.Fatalf("expected 0m, got %q", got)
	}
	if got := EstimateETA(time.Minute, 0, 4); got != "" {
		t.Fatalf("expected empty eta before first job, got %q", got)
	}
}

func TestFormatETASeconds(t *testing.T) {
	cases := map[float64]string{
		3900:   "1h 5m",
		90000:  "1d 1h",
		86400:  "1d",
		125:    "2m",
		-1:     "",
		7200.4: "2h",
	}
	for in, want := range cases {
		if got := formatETASeconds(in); got != want {
			t.Fatalf("formatETASeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLineReporter(t *testing.T) {
	var buf bytes.Buffer
	r := LineReporter{Out: &buf}
	r.Start(3, 2)
	r.JobFinished(model.Outcome{Job: model.ConversionJob{SourcePath: "/in/a.png"}, Status: model.StatusConverted}, 1, 3)
	r.JobFinished(model.Outcome{Job: model.ConversionJob{SourcePath: "/in/b.png"}, Status: model.StatusFailed, Err: errors.New("bad header")}, 2, 3)
	r.JobFinished(model.Outcome{Job: model.ConversionJob{SourcePath: "/in/c.png"}, Status: model.StatusSkipped}, 3, 3)

	want := []string{
		"converting 3 file(s) with 2 worker(s)",
		"[1/3] done  a.png",
		"[2/3] fail  b.png: bad header",
		"[3/3] skip  c.png",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("unexpected output %q", buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, got[i], want[i])
		}
	}
}

// lockedBuffer lets the test read frames while the ticker may be drawing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDashboardRendersActiveJobsAndEvents(t *testing.T) {
	var buf lockedBuffer
	d := NewDashboard(&buf)
	d.Start(2, 2)
	job := model.ConversionJob{ID: 1, SourcePath: "/in/clip.mp4", Kind: model.KindVideo}
	d.JobStarted(job)
	d.JobProgress(job, 0.25)
	d.render()
	if !strings.Contains(buf.String(), "active 1/2") || !strings.Contains(buf.String(), " 25.0%") {
		t.Fatalf("unexpected frame %q", buf.String())
	}

	d.JobFinished(model.Outcome{Job: job, Status: model.StatusConverted}, 1, 2)
	d.Finish(model.BatchResult{})
	frame := buf.String()
	if !strings.Contains(frame, "[1/2] done  clip.mp4") || !strings.Contains(frame, "(no active jobs)") {
		t.Fatalf("unexpected final frame %q", frame)
	}
}
