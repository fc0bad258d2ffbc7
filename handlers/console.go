// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Console is where commands read answers and write human output
type Console struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive reports whether In is a terminal a person can answer on
	Interactive bool
}

// StdConsole wraps the process streams
func StdConsole() Console {
	fd := os.Stdin.Fd()
	return Console{
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// Confirm asks a yes/no question. Only y and yes are accepted.
func (c Console) Confirm(question string) (bool, error) {
	fmt.Fprintf(c.Out, "%s [yes/no]: ", question)

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
