package main

import (
	"errors"
	"fmt"
	"os"

	"mert-convert/internal/cli"
)

func main() {
	err := cli.Run(os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrCancelled):
		fmt.Println("Operation cancelled.")
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
