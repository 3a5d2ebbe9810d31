// Package logging builds the process logger: human readable output on stderr
// and, when a file is configured, JSON lines rotated by lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	File  string

	// Console defaults to stderr.
	Console io.Writer
}

// New returns a logger and a closer for the log file, if any.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotate := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    20, // MB
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		writers = append(writers, rotate)
		closer = rotate
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().
		Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
