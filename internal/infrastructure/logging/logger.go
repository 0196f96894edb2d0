package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pulsehabit/devicelink/internal/infrastructure/config"
)

// Logger is the structured logger handed to every devicelink component.
// It embeds *slog.Logger, so call sites log with alternating key/value
// pairs:
//
//	logger.Info("device connected", "device_id", dev.ID, "transport", kind)
//
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the configuration.
//
// Format selects json (default) or text records, level sets the minimum
// severity, and output routes to stdout or stderr. Every record carries
// the service name and build version so devicelink lines stay
// attributable once aggregated with the rest of the habit stack.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg).WithAttrs([]slog.Attr{
		slog.String("service", "devicelink"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

func newHandler(cfg config.LoggingConfig) slog.Handler {
	var out io.Writer = os.Stdout
	if strings.ToLower(cfg.Output) == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

// parseLevel maps a config level string to slog.Level. Unrecognised
// values fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger that attaches the given attributes to every
// record, typically one per component:
//
//	schedLogger := logger.With("component", "scheduler")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a stdout JSON logger at info level, used during early
// startup before the configuration file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
