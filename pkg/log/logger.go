package log

// Logger is the interface applications implement to receive bridge
// diagnostic events. Pass nil or NoopLogger to disable diagnostics.
type Logger interface {
	// Log records a diagnostic event. Implementations must be
	// thread-safe and should return quickly; blocking here delays
	// the bridge's timers.
	Log(event Event)
}

// NoopLogger discards all events. Use when diagnostics are disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}

// OrNoop returns l, or a NoopLogger when l is nil. Components call
// this once at construction so the hot path never nil-checks.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}
