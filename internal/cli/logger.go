package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/slipway/internal/config"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/logging"
)

// logFileWriter holds the log file writer for cleanup during shutdown.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // needed for cleanup

// InitLogger creates and configures a zerolog.Logger based on verbosity flags.
//
// Log levels:
//   - verbose=true: debug
//   - quiet=true: warn
//   - default: info
//
// Output goes to stderr (console format on a TTY, JSON otherwise) and to a
// rotating file under ~/.slipway/logs. Every sink runs behind the sensitive
// data filter so a token that sneaks into a message is redacted before it
// lands anywhere.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	writer := selectOutput()

	if fileWriter, err := createLogFileWriter(); err == nil {
		logFileWriter = fileWriter
		writer = zerolog.MultiLevelWriter(writer, fileWriter)
	}
	// Log file creation failure is not fatal; console-only output continues.

	logger := zerolog.New(writer).
		Level(selectLevel(verbose, quiet)).
		Hook(logging.NewSensitiveDataHook()).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// InitLoggerWithWriter creates a logger with a custom writer, primarily for
// testing.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(selectLevel(verbose, quiet)).
		Hook(logging.NewSensitiveDataHook()).
		With().Timestamp().Logger()
}

// CloseLogFile closes the log file writer if it was opened. Called during
// shutdown.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel determines the log level from verbosity flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput picks console format for a TTY without NO_COLOR, JSON otherwise.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// createLogFileWriter opens the rotating log file under ~/.slipway/logs,
// wrapped in the sensitive data filter.
func createLogFileWriter() (io.WriteCloser, error) {
	dir, err := config.LogsDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, constants.CLILogFileName),
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}
	return &filteringWriteCloser{
		filter: logging.NewFilteringWriter(rotator),
		closer: rotator,
	}, nil
}

// filteringWriteCloser wraps a WriteCloser with sensitive data filtering.
type filteringWriteCloser struct {
	filter *logging.FilteringWriter
	closer io.Closer
}

func (f *filteringWriteCloser) Write(p []byte) (int, error) {
	return f.filter.Write(p)
}

func (f *filteringWriteCloser) Close() error {
	return f.closer.Close()
}
