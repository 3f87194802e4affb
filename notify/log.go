package notify

import (
	"context"
	"log/slog"
)

// LogProvider writes messages to the log instead of dispatching them.
// Used in debug mode and in tests.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider creates a log-only provider.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{
		logger: logger,
	}
}

// Send logs the message instead of sending it.
func (l *LogProvider) Send(_ context.Context, content string) error {
	l.logger.Info("DEBUG NOTIFICATION", "content", content)
	return nil
}
