package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the process logger
type Options struct {
	Level      string
	Format     string // console or json
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Stdout defaults to os.Stdout
	Stdout io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the root logger. The returned closer flushes the rotating file, if any.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		level = parsed
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var console io.Writer = stdout
	if !strings.EqualFold(opts.Format, "json") {
		console = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.DateTime}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}
