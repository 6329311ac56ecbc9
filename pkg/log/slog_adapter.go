package log

import (
	"log/slog"
)

// SlogAdapter writes bridge events to an slog.Logger.
// Useful for development when you want diagnostics on the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Errors go out at Warn,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []any{
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.State != "" {
		attrs = append(attrs, slog.String("state", event.State))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}

	if event.Category == CategoryError {
		a.logger.Warn(event.Message, attrs...)
		return
	}
	a.logger.Debug(event.Message, attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
