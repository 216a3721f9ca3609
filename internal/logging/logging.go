// Package logging installs zerolog as the handler behind log/slog.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// Format selects how log records are written.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options configures Setup.
type Options struct {
	Level  string
	Format Format
	Out    io.Writer
}

// ParseLevel maps a level name to a slog level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New builds a slog logger writing through zerolog.
func New(o Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	out := o.Out
	if out == nil {
		out = os.Stderr
	}

	var zl zerolog.Logger
	switch o.Format {
	case FormatJSON:
		zl = zerolog.New(out).With().Timestamp().Logger()
	case FormatConsole, "":
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Stamp}
		zl = zerolog.New(output).With().Timestamp().Logger()
	default:
		return nil, fmt.Errorf("invalid log format %q", o.Format)
	}

	return slog.New(zeroslog.NewHandler(zl, &zeroslog.HandlerOptions{Level: lvl})), nil
}

// Setup builds the logger and makes it the slog default.
func Setup(o Options) (*slog.Logger, error) {
	logger, err := New(o)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
