package platform

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats-server/v2/server"
)

// InitLogger sets up the global slog logger. level is one of debug, info,
// warn or error; anything else means info.
func InitLogger(level string) {
	slog.SetDefault(NewLogger(os.Stdout, level))
}

// NewLogger returns a JSON logger writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: parseLevel(level)})
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// natsLoggerAdapter implements nats-server Logger interface using slog.
type natsLoggerAdapter struct {
	logger *slog.Logger
}

func NewNATSServerLogger(logger *slog.Logger) server.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &natsLoggerAdapter{logger: logger.With("component", "nats")}
}

// Logger interface V2 methods
func (nl *natsLoggerAdapter) Noticef(format string, v ...interface{}) {
	nl.logger.Debug(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Warnf(format string, v ...interface{}) {
	nl.logger.Warn(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Errorf(format string, v ...interface{}) {
	nl.logger.Error(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Fatalf(format string, v ...interface{}) {
	nl.logger.Error("NATS FATAL: " + fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Debugf(format string, v ...interface{}) {
	nl.logger.Debug(fmt.Sprintf(format, v...))
}
func (nl *natsLoggerAdapter) Tracef(format string, v ...interface{}) {
	nl.logger.Debug("NATS TRACE: " + fmt.Sprintf(format, v...))
}
