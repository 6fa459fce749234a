// Package logging builds the process-wide zerolog.Logger, the one
// logging library carried through every component (saiputravu-Exchange
// uses zerolog directly throughout internal/net and internal/worker.go;
// rahjooh-CryptoTrade's level/format/output Configure shape is adapted
// here onto zerolog rather than adopted alongside a second framework).
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how New builds its logger.
type Options struct {
	// Level is one of zerolog's level strings: "debug", "info",
	// "warn", "error". Defaults to "info" if empty or unparseable.
	Level string
	// Pretty selects zerolog's ConsoleWriter over newline-delimited
	// JSON. Intended for local/dev runs only.
	Pretty bool
	// FilePath, if non-empty, routes output through a lumberjack
	// rotating writer instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxAgeDays int
	Compress   bool
}

// New builds a configured zerolog.Logger. It never returns an error:
// an unparseable level falls back to Info, matching spec.md's ambient
// stack not introducing configuration-time hard failures outside the
// engine/feed components' own documented error taxonomy.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var writer interface{ Write([]byte) (int, error) }
	switch {
	case opts.FilePath != "":
		writer = &lumberjack.Logger{
			Filename: opts.FilePath,
			MaxSize:  maxOr(opts.MaxSizeMB, 100),
			MaxAge:   maxOr(opts.MaxAgeDays, 28),
			Compress: opts.Compress,
		}
	case opts.Pretty:
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFormatUnix}
	default:
		writer = os.Stderr
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func maxOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
