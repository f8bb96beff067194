package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"mert-convert/internal/config"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "path":
		fmt.Println(config.DefaultPath())
		return nil
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (default: user config dir)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, resolved, exists, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": resolved,
			"exists":      exists,
			"settings":    s,
		})
	}

	suffix := ""
	if !exists {
		suffix = " (not created yet, showing defaults)"
	}
	fmt.Printf("config: %s%s\n", resolved, suffix)
	printSettings(s)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (default: user config dir)")
	maxKB := fs.Int("max-kb", -1, "default target size in KB (>0, -1 keeps current)")
	quality := fs.Int("quality", -1, "default initial quality 0..100 (-1 keeps current)")
	output := fs.String("output", "", "default output directory (empty keeps current)")
	workers := fs.Int("workers", -1, "parallel jobs (0 = derive from CPUs, -1 keeps current)")
	ratio := fs.Float64("worker-ratio", -1, "share of CPUs used when workers is 0, in (0,1] (-1 keeps current)")
	imageEncoder := fs.String("image-encoder", "", "image backend: native|cwebp (empty keeps current)")
	logLevel := fs.String("log-level", "", "debug|info|warn|error (empty keeps current)")
	logFormat := fs.String("log-format", "", "text|json (empty keeps current)")
	logFile := fs.String("log-file", "", "log file path, '-' clears it (empty keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, resolved, _, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}

	if *maxKB != -1 {
		if *maxKB <= 0 {
			return errors.New("--max-kb must be > 0")
		}
		s.MaxKB = *maxKB
	}
	if *quality != -1 {
		s.Quality = *quality
	}
	if v := strings.TrimSpace(*output); v != "" {
		s.OutputDir = v
	}
	if *workers != -1 {
		s.Workers = *workers
	}
	if *ratio != -1 {
		s.WorkerRatio = *ratio
	}
	if v := strings.TrimSpace(*imageEncoder); v != "" {
		s.ImageEncoder = v
	}
	if v := strings.TrimSpace(*logLevel); v != "" {
		s.Logging.Level = v
	}
	if v := strings.TrimSpace(*logFormat); v != "" {
		s.Logging.Format = v
	}
	switch v := strings.TrimSpace(*logFile); v {
	case "":
	case "-":
		s.Logging.File = ""
	default:
		s.Logging.File = v
	}

	saved, err := config.Save(resolved, s)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": saved,
			"settings":    s,
		})
	}
	fmt.Printf("updated settings in %s\n", saved)
	printSettings(s)
	return nil
}

func printSettings(s config.Settings) {
	workers := "auto"
	if s.Workers > 0 {
		workers = strconv.Itoa(s.Workers)
	}
	logFile := s.Logging.File
	if logFile == "" {
		logFile = "(none)"
	}
	rows := [][]string{
		{"max_kb", strconv.Itoa(s.MaxKB)},
		{"quality", strconv.Itoa(s.Quality)},
		{"output_dir", s.OutputDir},
		{"workers", workers},
		{"worker_ratio", strconv.FormatFloat(s.WorkerRatio, 'f', -1, 64)},
		{"image_encoder", s.ImageEncoder},
		{"logging.level", s.Logging.Level},
		{"logging.format", s.Logging.Format},
		{"logging.file", logFile},
	}
	fmt.Println(renderTable([]string{"Setting", "Value"}, rows, nil))
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show [--json]")
	fmt.Println("  settings set [--max-kb N] [--quality N] [--output DIR] [--workers N] [--worker-ratio R]")
	fmt.Println("               [--image-encoder native|cwebp] [--log-level L] [--log-format F] [--log-file PATH|-]")
	fmt.Println("  settings path")
}
