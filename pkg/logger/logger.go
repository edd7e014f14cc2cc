package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EMPTY     = ""
	DEBUG     = "debug"
	INFO      = "info"
	WARN      = "warn"
	ERROR     = "error"
	JSON      = "json"
	TEXT      = "text"
	SERVICE   = "service"
	COMPONENT = "component"

	// DefaultService labels records from binaries that do not name themselves.
	DefaultService = "planner"
)

// exit is replaced in tests.
var exit = os.Exit

// Logger is a slog logger carrying the planner's service attribute.
type Logger struct {
	*slog.Logger
}

type Config struct {
	Level     string
	Format    string
	Output    io.Writer
	AddSource bool
	Service   string
}

func (c Config) withDefaults() Config {
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.Format == EMPTY {
		c.Format = JSON
	}
	if c.Service == EMPTY {
		c.Service = DefaultService
	}
	return c
}

// ParseLevel maps a configured level name onto slog. Unknown and empty names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DEBUG:
		return slog.LevelDebug
	case WARN, "warning":
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New(cfg Config) *Logger {
	cfg = cfg.withDefaults()
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == TEXT {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	handler = handler.WithAttrs([]slog.Attr{slog.String(SERVICE, cfg.Service)})

	return &Logger{Logger: slog.New(handler)}
}

// Component returns a child logger that tags every record with the subsystem
// that wrote it, e.g. "notifications".
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.With(COMPONENT, name)}
}

// Fatal logs at error level and exits with status 1.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	exit(1)
}
