package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"mert-convert/internal/config"
	"mert-convert/internal/discovery"
)

func runDoctor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (default: user config dir)")
	output := fs.String("output", "", "output directory to check (default from settings)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgPath := strings.TrimSpace(*configPath)
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	outDir := strings.TrimSpace(*output)
	if outDir == "" {
		// A broken settings file is reported as a check below, so fall back
		// to defaults here.
		s, _, err := loadSettings(cfgPath)
		if err != nil {
			s = config.Default()
		}
		outDir = s.OutputDir
	}

	res, err := discovery.Doctor(ctx, discovery.DoctorOptions{
		OutputDir:  outDir,
		ConfigPath: cfgPath,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	rows := make([][]string, 0, len(res.Checks))
	for _, c := range res.Checks {
		status := "ok"
		switch {
		case !c.OK && c.Optional:
			status = "missing"
		case !c.OK:
			status = "fail"
		}
		rows = append(rows, []string{c.Name, status, c.Message})
	}
	fmt.Println(renderTable([]string{"Check", "Status", "Details"}, rows, nil))
	if res.VideoSupported {
		fmt.Println("video conversion: available")
	} else {
		fmt.Println("video conversion: unavailable (install ffmpeg and ffprobe)")
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}
