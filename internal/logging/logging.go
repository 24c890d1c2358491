// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package logging configures the process-wide zerolog logger used
// across every component of the workspace assistant.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. level is one of "debug",
// "info", "warn", "error" (case-insensitive); anything else falls back
// to "info". When pretty is true, output is a human-readable console
// writer (for local development); otherwise it's newline-delimited JSON
// suitable for log aggregation.
func Setup(level string, pretty bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	var writer = os.Stderr
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"})
		return
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Caller().Logger()
}
