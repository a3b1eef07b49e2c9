// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides prompt helpers for interactive commands.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Width returns the terminal width, or 80 when stdout is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// LinesFor returns how many terminal rows text of the given length occupies.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	n := int(math.Ceil(float64(textLength) / float64(width)))
	if n < 1 {
		n = 1
	}
	return n
}

// ClearPreviousLines erases text of textLength characters printed just
// before the user pressed Enter, including the empty line Enter left.
func ClearPreviousLines(textLength int) {
	linesToClear := LinesFor(textLength, Width()) + 1
	for i := 0; i < linesToClear; i++ {
		fmt.Print("\r\x1b[2K")
		if i < linesToClear-1 {
			fmt.Print("\x1b[1A")
		}
	}
}

// ReadSecret prompts and reads a line without echo. When stdin is not a
// terminal the line is read from in as-is.
func ReadSecret(prompt string, in io.Reader) (string, error) {
	fmt.Print(prompt)
	if in == os.Stdin && IsInteractive() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
