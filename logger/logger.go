// Package logger configures the process-wide slog logger and carries
// request-scoped loggers through gin contexts.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKey = "logger"

// New builds a logger writing JSON in production and text elsewhere.
func New(w io.Writer, level, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", "canteen-api"))
}

// Init installs the logger as the slog default and returns it.
func Init(level, env string) *slog.Logger {
	l := New(os.Stdout, level, env)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithContext stores a request-scoped logger on the gin context.
func WithContext(c *gin.Context, l *slog.Logger) {
	c.Set(contextKey, l)
}

// FromContext returns the request logger, or the default logger when none is set.
func FromContext(c *gin.Context) *slog.Logger {
	if c != nil {
		if v, ok := c.Get(contextKey); ok {
			if l, ok := v.(*slog.Logger); ok {
				return l
			}
		}
	}
	return slog.Default()
}
