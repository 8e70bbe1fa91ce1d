package utils

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
)

var ErrUnexpectedLogLevel = errors.New("unexpected log level")

// Configure the slog logger with a specific log level and potential output file.
//
// Valid log levels are "none", "error", "warn", "info", "debug". Any other value returns an error.
// logFile may either specify a file path, which is rotated once it grows past a few megabytes,
// or none, in which case the logger points to stderr so it does not interleave with the prompt.
//
// Returns the writer slog writes to, so it may be gracefully shut:
// ```
// logCloser, err := utils.ConfigureDefaultLogger(level, file, slog.HandlerOptions{})
//
//	if logCloser != nil{
//		defer logCloser.Close()
//	}
//
// ```
func ConfigureDefaultLogger(logLevel string, logFile string, loggerOptions slog.HandlerOptions) (io.Closer, error) {
	level, ok, err := parseLogLevel(logLevel)
	if err != nil {
		return nil, err
	}
	if !ok {
		// No logging is required, disable the logger and return
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}
	loggerOptions.Level = level

	// --------------------------------------------------------------------------------

	var logCloser io.Closer
	var slogHandler slog.Handler
	if logFile == "" {
		slogHandler = slog.NewTextHandler(os.Stderr, &loggerOptions)
	} else {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
		}
		logCloser = rotating
		slogHandler = slog.NewJSONHandler(rotating, &loggerOptions)
	}

	// --------------------------------------------------------------------------------

	slog.SetDefault(slog.New(slogHandler))
	return logCloser, nil
}

// ok is false for "none".
func parseLogLevel(logLevel string) (level slog.Level, ok bool, err error) {
	switch logLevel {
	case "none":
		return 0, false, nil
	case "error":
		return slog.LevelError, true, nil
	case "warn":
		return slog.LevelWarn, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	default:
		return 0, false, ErrUnexpectedLogLevel
	}
}
