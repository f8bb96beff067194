package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"mert-convert/internal/batch"
	"mert-convert/internal/model"
)

const recentEvents = 5

type batchStartMsg struct {
	total   int
	workers int
}

type jobStartedMsg struct{ job model.ConversionJob }

type jobProgressMsg struct {
	job      model.ConversionJob
	fraction float64
}

type jobFinishedMsg struct {
	outcome model.Outcome
	done    int
	total   int
}

type batchDoneMsg struct {
	result model.BatchResult
	err    error
}

type progressTickMsg time.Time

// teaReporter forwards batch events into a running bubbletea program.
type teaReporter struct {
	send func(tea.Msg)
}

func (r teaReporter) Start(total, workers int) {
	r.send(batchStartMsg{total: total, workers: workers})
}

func (r teaReporter) JobStarted(job model.ConversionJob) {
	r.send(jobStartedMsg{job: job})
}

func (r teaReporter) JobProgress(job model.ConversionJob, fraction float64) {
	r.send(jobProgressMsg{job: job, fraction: fraction})
}

func (r teaReporter) JobFinished(o model.Outcome, done, total int) {
	r.send(jobFinishedMsg{outcome: o, done: done, total: total})
}

func (teaReporter) Finish(model.BatchResult) {}

type activeView struct {
	job      model.ConversionJob
	fraction float64
	started  time.Time
}

type progressModel struct {
	bar     progress.Model
	width   int
	started time.Time
	cancel  context.CancelFunc

	total     int
	workers   int
	done      int
	converted int
	failed    int
	skipped   int
	active    map[int]*activeView
	recent    []string

	interrupted bool
	finished    bool
	result      model.BatchResult
	err         error
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	return progressModel{
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		started: time.Now(),
		cancel:  cancel,
		active:  make(map[int]*activeView),
	}
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return progressTickMsg(t) })
}

func (m progressModel) Init() tea.Cmd {
	return progressTick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clampInt(msg.Width-20, 20, 80)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			if !m.interrupted {
				m.interrupted = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil
	case batchStartMsg:
		m.total = msg.total
		m.workers = msg.workers
		return m, nil
	case jobStartedMsg:
		m.active[msg.job.ID] = &activeView{job: msg.job, started: time.Now()}
		return m, nil
	case jobProgressMsg:
		if a, ok := m.active[msg.job.ID]; ok {
			a.fraction = msg.fraction
		}
		return m, nil
	case jobFinishedMsg:
		delete(m.active, msg.outcome.Job.ID)
		m.done = msg.done
		m.total = msg.total
		switch msg.outcome.Status {
		case model.StatusConverted:
			m.converted++
		case model.StatusFailed:
			m.failed++
		default:
			m.skipped++
		}
		m.recent = append([]string{batch.FinishedLine(msg.outcome, msg.done, msg.total)}, m.recent...)
		if len(m.recent) > recentEvents {
			m.recent = m.recent[:recentEvents]
		}
		return m, nil
	case batchDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case progressTickMsg:
		if m.finished {
			return m, nil
		}
		return m, progressTick()
	}
	return m, nil
}

func (m progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m progressModel) View() string {
	if m.finished {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = 100
	}

	var b strings.Builder
	b.WriteString(wizardTitleStyle.Render("Converting") + "\n\n")
	b.WriteString(m.bar.ViewAs(m.percent()) + "\n")

	eta := batch.EstimateETA(time.Since(m.started), m.done, m.total)
	if eta == "" {
		eta = "calculating"
	}
	counts := fmt.Sprintf("%d/%d done | converted %d | failed %d | skipped %d | workers %d | eta ~ %s",
		m.done, m.total, m.converted, m.failed, m.skipped, m.workers, eta)
	b.WriteString(wizardMutedStyle.Render(counts) + "\n\n")

	ids := make([]int, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		a := m.active[id]
		line := fmt.Sprintf("  %s  %s", a.job.Kind, filepath.Base(a.job.SourcePath))
		if a.job.Kind == model.KindVideo {
			line += fmt.Sprintf("  %3.0f%%", a.fraction*100)
		}
		line += wizardMutedStyle.Render(fmt.Sprintf("  %s", time.Since(a.started).Truncate(time.Second)))
		b.WriteString(wrapOrTrim(line, maxInt(width-2, 20)) + "\n")
	}
	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, line := range m.recent {
			style := wizardMutedStyle
			if strings.Contains(line, "] fail ") {
				style = wizardErrorStyle
			}
			b.WriteString(style.Render(wrapOrTrim(line, maxInt(width-2, 20))) + "\n")
		}
	}
	if m.interrupted {
		b.WriteString("\n" + wizardNoticeStyle.Render("Stopping: waiting for running files to finish...") + "\n")
	} else {
		b.WriteString("\n" + wizardMutedStyle.Render("ctrl+c: stop after running files") + "\n")
	}
	return b.String()
}
