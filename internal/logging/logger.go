// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Unknown levels fall back to warn so the
// console stays quiet unless asked otherwise. When w is a terminal-bound
// writer (os.Stderr) output is human readable; any other writer gets JSON.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	if f, ok := w.(*os.File); ok && f == os.Stderr {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Secret returns a masked rendition of s for use as a log field value.
func Secret(s string) string {
	if s == "" {
		return ""
	}
	return Mask(s)
}
