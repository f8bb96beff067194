package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mert-convert/internal/encoder"
)

func runWizard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (default: user config dir)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("the wizard requires an interactive terminal (TTY); use `mert-convert run --input <path>` instead")
	}

	settings, _, err := loadSettings(*configPath)
	if err != nil {
		return err
	}
	base := planFromSettings(settings)

	wm := newWizardModel(base, encoder.CheckFFmpeg(ctx), 100)
	final, err := tea.NewProgram(wm).Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("the wizard requires an interactive terminal (TTY)")
		}
		return err
	}
	answers, ok := final.(wizardModel)
	if !ok || answers.cancelled || !answers.confirmed {
		return ErrCancelled
	}
	plan, err := answers.toPlan(base)
	if err != nil {
		return err
	}

	// Console logging would tear the TUI; only a configured log file is used.
	logger, closeLog, err := newLogger(settings, nil)
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
		fmt.Printf("No %s found in %s.\n", plan.Media, strings.Join(plan.Inputs, ", "))
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(newProgressModel(cancel))
	go func() {
		res, err := executePlan(runCtx, plan, found, teaReporter{send: p.Send}, logger)
		p.Send(batchDoneMsg{result: res, err: err})
	}()

	final, err = p.Run()
	if err != nil {
		cancel()
		return err
	}
	pm, ok := final.(progressModel)
	if !ok {
		return errors.New("unexpected progress model")
	}
	if pm.err != nil {
		return pm.err
	}
	printSummary(os.Stdout, pm.result, pm.interrupted)
	fmt.Printf("Output: %s\n", plan.OutputDir)
	return nil
}
