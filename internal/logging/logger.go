// Package logging builds the process logger from config.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Params struct {
	Level     string
	JSON      bool
	FileName  string
	MaxSizeMB int
	// ToStdout keeps writing to stdout when FileName is set.
	ToStdout bool
}

// Setup returns a logger writing to stdout, a rotating file, or both.
// The returned closer releases the log file and is safe to call when none is open.
func Setup(p Params) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if p.FileName != "" {
		if !strings.HasSuffix(p.FileName, ".log") {
			p.FileName += ".log"
		}
		maxSize := p.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		lj := &lumberjack.Logger{
			Filename: p.FileName,
			MaxSize:  maxSize, // megabytes
			Compress: true,
		}
		closer = lj
		out = lj
		if p.ToStdout {
			out = io.MultiWriter(os.Stdout, lj)
		}
	}

	return New(out, p.Level, p.JSON), closer
}

// New builds a logger on w at the named level.
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Level maps a config level name to a slog level. Unknown names mean info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
