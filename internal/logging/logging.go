package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/controllernode/versions/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
)

const loggerName = "github.com/controllernode/versions"

// Setup configures the default slog logger based on the provided config.
// When lp is non-nil, records are also sent to the OpenTelemetry log bridge.
// This also bridges the standard "log" package via slog.SetDefault (Go 1.22+).
func Setup(cfg config.LogConfig, lp log.LoggerProvider) {
	slog.SetDefault(New(os.Stderr, cfg, lp))
}

// New builds the logger Setup installs, writing local output to w.
func New(w io.Writer, cfg config.LogConfig, lp log.LoggerProvider) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if lp != nil {
		bridge := minLevel{
			Handler: otelslog.NewHandler(loggerName, otelslog.WithLoggerProvider(lp)),
			level:   opts.Level,
		}
		handler = fanout{handler, bridge}
	}

	return slog.New(handler)
}

func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
