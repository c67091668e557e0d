package main

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"bsie/internal/api"
	"bsie/internal/pipeline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderState returns the humanized state label, colorized for terminals:
// green for completion, red for failure states, yellow for review.
func renderState(state pipeline.State, colorize bool) string {
	label := api.StateLabel(state)
	if !colorize {
		return label
	}
	switch {
	case state == pipeline.StateCompleted:
		return ansiGreen + label + ansiReset
	case state == pipeline.StateHumanReviewRequired:
		return ansiYellow + label + ansiReset
	case strings.HasSuffix(string(state), "_FAILED"), state == pipeline.StateTemplateMissing:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}
