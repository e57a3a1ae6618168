// Package ui wraps fzf for the interactive history commands.
// Items reach fzf on stdin as plain text; nothing is shell-evaluated.
package ui

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the user aborts the picker.
var ErrCancelled = errors.New("selection cancelled")

var lookPath = exec.LookPath

// fzf runs fzf with args, feeding it input, and returns its stdout.
func fzf(input string, args ...string) (string, error) {
	path, err := lookPath("fzf")
	if err != nil {
		return "", fmt.Errorf("fzf not found in PATH: %w", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 130 {
			return "", ErrCancelled
		}
		return stdout.String(), fmt.Errorf("fzf failed: %w", err)
	}
	return stdout.String(), nil
}

// Select presents items and returns the chosen index.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	out, err := fzf(numbered(items),
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--with-nth", "2..",
		"--delimiter", "\t",
		"--no-multi",
		"--cycle",
	)
	if err != nil {
		return -1, err
	}

	return parseSelection(out, len(items))
}

// Confirm asks a yes/no question.
func Confirm(prompt string) (bool, error) {
	idx, err := Select(prompt, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

func numbered(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d\t%s\n", i, item)
	}
	return sb.String()
}

// parseSelection extracts the index from fzf's "<index>\t<item>" output.
func parseSelection(out string, n int) (int, error) {
	selected := strings.TrimSpace(out)
	if selected == "" {
		return -1, fmt.Errorf("no selection made")
	}

	field, _, _ := strings.Cut(selected, "\t")

	var idx int
	if _, err := fmt.Sscanf(field, "%d", &idx); err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}

	if idx < 0 || idx >= n {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}

	return idx, nil
}
