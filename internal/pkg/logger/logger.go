package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/httplog/v3"
)

// Options configures the process-wide logger.
type Options struct {
	App     string
	Version string
	Env     string
	Level   string
}

// New builds a JSON slog logger using the ECS field names httplog emits for
// access logs, and installs it as the default logger.
func New(opts Options) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.App),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)
	slog.SetDefault(logger)
	return logger
}

func ParseLevel(level string) slog.Level {
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
