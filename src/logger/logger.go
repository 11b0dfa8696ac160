package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"series-canon/src/models"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	logger zerolog.Logger
	config interface{}
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance.
// config may be *models.MConfig (level and format are taken from it) or nil.
func NewLogger(config interface{}, name string) *Logger {
	return NewLoggerTo(os.Stdout, config, name)
}

// -----------------------------------------------------------------------------

// NewLoggerTo is NewLogger with an explicit output writer.
func NewLoggerTo(out io.Writer, config interface{}, name string) *Logger {
	level, format := "info", "console"
	if cfg, ok := config.(*models.MConfig); ok && cfg != nil {
		if cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
		if cfg.LogFormat != "" {
			format = cfg.LogFormat
		}
	}

	var w io.Writer = out
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime, NoColor: true}
	}

	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("component", name).
		Logger()

	return &Logger{
		name:   name,
		logger: zl,
		config: config,
	}
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warning", "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing output and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		logger: l.logger.With().Str("component", name).Logger(),
		config: l.config,
	}
}

// -----------------------------------------------------------------------------

// Debug logs debugging messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
