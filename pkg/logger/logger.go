package logger

import (
	"log/slog"
	"os"
)

const serviceName = "billing-reconciliation"

var defaultLogger *slog.Logger

// Init builds the process-wide logger: JSON in production, text elsewhere.
// Every line carries the service name so aggregated webhook logs stay
// attributable.
func Init(env string) {
	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	defaultLogger = slog.New(handler).With("service", serviceName)
	slog.SetDefault(defaultLogger)
}

// LoggerWrapper returns the shared logger, initializing a development one on
// first use so callers never receive nil.
func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		Init("development")
	}
	return defaultLogger
}
