package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	err := newRootCommand().Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		prefix := "Error:"
		if shouldColorize(os.Stderr) {
			prefix = paint(color.FgRed, prefix)
		}
		fmt.Fprintln(os.Stderr, prefix, err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return 1
	}
}
