package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ErrCancelled is returned when the user backs out of the wizard. It is not a
// failure; callers exit 0.
var ErrCancelled = errors.New("operation cancelled")

func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) == 0 {
		return runWizard(ctx, nil)
	}

	switch args[0] {
	case "convert":
		return runWizard(ctx, args[1:])
	case "run":
		return runConvert(ctx, args[1:])
	case "doctor":
		return runDoctor(ctx, args[1:])
	case "settings":
		return runSettings(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("mert-convert: convert images to WebP and videos to WebM under a size budget")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  mert-convert                      interactive wizard")
	fmt.Println("  mert-convert run --input <path> --max-kb 100")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  convert   interactive wizard (default when no command is given)")
	fmt.Println("  run       non-interactive batch conversion driven by flags")
	fmt.Println("  doctor    check ffmpeg/ffprobe/cwebp and output directory access")
	fmt.Println("  settings  show/update stored defaults")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Images become .webp, videos .webm (VP9/Opus); video needs ffmpeg and ffprobe on PATH")
	fmt.Println("  - Use --json on run/doctor/settings for machine-readable output")
}
