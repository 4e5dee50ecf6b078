// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zerolog logger shared by every stage.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// New returns a logger writing to w (stderr when nil) at cfg.Level. Format
// "json" emits one JSON object per line; anything else uses the console
// writer.
func New(cfg types.LoggingConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, "json") {
		zl = zerolog.New(w)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	}

	return zl.Level(ParseLevel(cfg.Level)).With().Timestamp().Str("app", "pdf2epub").Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info for
// empty or unknown names.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
