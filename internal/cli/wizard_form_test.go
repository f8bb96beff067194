package cli

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testDefaults() conversionPlan {
	return conversionPlan{
		Media:        mediaImages,
		MaxKB:        100,
		Quality:      90,
		OutputDir:    "converted-media",
		WorkerRatio:  0.75,
		ImageEncoder: "native",
	}
}

func pressKey(t *testing.T, m wizardModel, msg tea.KeyMsg) wizardModel {
	t.Helper()
	next, _ := m.Update(msg)
	wm, ok := next.(wizardModel)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return wm
}

func enter(t *testing.T, m wizardModel) wizardModel {
	return pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func typeValue(m wizardModel, v string) wizardModel {
	m.input.SetValue(v)
	return m
}

func TestWizardMediaSelectCyclesWhenVideoAvailable(t *testing.T) {
	m := newWizardModel(testDefaults(), true, 80)
	if got := m.currentField().Value; got != mediaImages {
		t.Fatalf("expected default media %q, got %q", mediaImages, got)
	}

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.currentField().Value; got != mediaVideos {
		t.Fatalf("expected %q after right, got %q", mediaVideos, got)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if got := m.currentField().Value; got != mediaBoth {
		t.Fatalf("expected %q after space, got %q", mediaBoth, got)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.currentField().Value; got != mediaImages {
		t.Fatalf("expected wrap to %q, got %q", mediaImages, got)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.currentField().Value; got != mediaBoth {
		t.Fatalf("expected %q after left, got %q", mediaBoth, got)
	}
}

func TestWizardHidesVideoWithoutFFmpeg(t *testing.T) {
	m := newWizardModel(testDefaults(), false, 80)
	if opts := m.fields[0].Options; len(opts) != 1 || opts[0] != mediaImages {
		t.Fatalf("expected images-only options, got %v", opts)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.currentField().Value; got != mediaImages {
		t.Fatalf("expected media to stay %q, got %q", mediaImages, got)
	}
	if !strings.Contains(m.View(), "video conversion is disabled") {
		t.Fatal("expected ffmpeg notice in view")
	}
}

func TestWizardRequiresInputPath(t *testing.T) {
	m := newWizardModel(testDefaults(), false, 80)
	m = enter(t, m)
	if m.index != 1 {
		t.Fatalf("expected input field, got index %d", m.index)
	}

	m = enter(t, m)
	if m.index != 1 || m.err == "" {
		t.Fatalf("expected validation error on empty input, index=%d err=%q", m.index, m.err)
	}

	m = enter(t, typeValue(m, filepath.Join(t.TempDir(), "missing")))
	if m.index != 1 || !strings.Contains(m.err, "not found") {
		t.Fatalf("expected not-found error, index=%d err=%q", m.index, m.err)
	}

	m = enter(t, typeValue(m, t.TempDir()))
	if m.index != 2 || m.err != "" {
		t.Fatalf("expected to advance to max size, index=%d err=%q", m.index, m.err)
	}
}

func TestWizardRejectsInvalidNumbers(t *testing.T) {
	m := newWizardModel(testDefaults(), false, 80)
	m = enter(t, m)
	m = enter(t, typeValue(m, t.TempDir()))

	for _, bad := range []string{"abc", "0", "-5", "1.5"} {
		m = enter(t, typeValue(m, bad))
		if m.index != 2 || m.err == "" {
			t.Fatalf("max size %q: expected validation error, index=%d", bad, m.index)
		}
	}
	m = enter(t, typeValue(m, "250"))
	if m.index != 3 {
		t.Fatalf("expected quality field, got index %d", m.index)
	}

	for _, bad := range []string{"101", "-1", "high"} {
		m = enter(t, typeValue(m, bad))
		if m.index != 3 || m.err == "" {
			t.Fatalf("quality %q: expected validation error, index=%d", bad, m.index)
		}
	}
	m = enter(t, typeValue(m, "0"))
	if m.index != 4 {
		t.Fatalf("expected output field, got index %d", m.index)
	}
}

func walkToConfirm(t *testing.T, inputDir string) wizardModel {
	t.Helper()
	m := newWizardModel(testDefaults(), false, 80)
	m = enter(t, m)
	m = enter(t, typeValue(m, inputDir))
	m = enter(t, typeValue(m, "64"))
	m = enter(t, typeValue(m, "80"))
	m = enter(t, typeValue(m, filepath.Join(t.TempDir(), "out")))
	if !m.confirming {
		t.Fatalf("expected confirm step, index=%d err=%q", m.index, m.err)
	}
	return m
}

func TestWizardConfirmOnlyOnY(t *testing.T) {
	dir := t.TempDir()

	m := walkToConfirm(t, dir)
	if !strings.Contains(m.View(), "(y/N)") {
		t.Fatal("expected y/N prompt")
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if !m.confirmed || m.cancelled {
		t.Fatalf("expected confirmed, got confirmed=%v cancelled=%v", m.confirmed, m.cancelled)
	}

	m = walkToConfirm(t, dir)
	m = enter(t, m)
	if m.confirmed || !m.cancelled {
		t.Fatalf("expected enter to cancel, got confirmed=%v cancelled=%v", m.confirmed, m.cancelled)
	}

	m = walkToConfirm(t, dir)
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.confirmed || !m.cancelled {
		t.Fatal("expected n to cancel")
	}
}

func TestWizardEscCancels(t *testing.T) {
	m := newWizardModel(testDefaults(), true, 80)
	m = enter(t, m)
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.cancelled {
		t.Fatal("expected esc to cancel")
	}
	if m.View() != "" {
		t.Fatal("expected empty view after cancel")
	}
}

func TestWizardBackKeepsAnswers(t *testing.T) {
	m := newWizardModel(testDefaults(), false, 80)
	m = enter(t, m)
	dir := t.TempDir()
	m = enter(t, typeValue(m, dir))
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.index != 1 {
		t.Fatalf("expected back to input field, got %d", m.index)
	}
	if got := m.input.Value(); got != dir {
		t.Fatalf("expected input to reload %q, got %q", dir, got)
	}
}

func TestWizardToPlan(t *testing.T) {
	in := t.TempDir()
	m := walkToConfirm(t, in)
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	plan, err := m.toPlan(testDefaults())
	if err != nil {
		t.Fatalf("toPlan: %v", err)
	}
	if plan.Media != mediaImages {
		t.Fatalf("unexpected media %q", plan.Media)
	}
	if len(plan.Inputs) != 1 || plan.Inputs[0] != in || plan.Flatten {
		t.Fatalf("unexpected inputs %v flatten=%v", plan.Inputs, plan.Flatten)
	}
	if plan.MaxKB != 64 || plan.Quality != 80 {
		t.Fatalf("unexpected size/quality %d/%d", plan.MaxKB, plan.Quality)
	}
	if !filepath.IsAbs(plan.OutputDir) || filepath.Base(plan.OutputDir) != "out" {
		t.Fatalf("unexpected output dir %q", plan.OutputDir)
	}
	if plan.ImageEncoder != "native" || plan.WorkerRatio != 0.75 {
		t.Fatalf("expected untouched defaults, got %+v", plan)
	}
}

func TestWizardToPlanFlattensMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 4, 4)
	writePNG(t, b, 4, 4)

	m := walkToConfirm(t, a+" "+b)
	plan, err := m.toPlan(testDefaults())
	if err != nil {
		t.Fatalf("toPlan: %v", err)
	}
	if !plan.Flatten || len(plan.Inputs) != 2 {
		t.Fatalf("expected flatten with 2 inputs, got %v flatten=%v", plan.Inputs, plan.Flatten)
	}
}
