package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so the rest of the service can depend on one type
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // human readable console output
	OutputFile string // optional file, written in addition to stdout
	Output     io.Writer
}

// New creates a logger from cfg. An unknown level falls back to info.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	var fileErr error
	if cfg.OutputFile != "" {
		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fileErr = err
		} else {
			output = io.MultiWriter(output, file)
		}
	}

	l := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	if fileErr != nil {
		l.Warn().Err(fileErr).Str("file", cfg.OutputFile).Msg("Failed to open log file, logging to console only")
	}

	return &Logger{Logger: &l}
}

// NewDefault creates an info level console logger
func NewDefault() *Logger {
	return New(Config{
		Level:  "info",
		Pretty: true,
	})
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{Logger: &l}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithRequestID returns a logger with a request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithIP returns a logger with the looked up IP address
func (l *Logger) WithIP(ip string) *Logger {
	return l.with("ip", ip)
}

func (l *Logger) with(key, value string) *Logger {
	child := l.With().Str(key, value).Logger()
	return &Logger{Logger: &child}
}
