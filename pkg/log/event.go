package log

import "time"

// Event represents a diagnostic event captured at any bridge layer.
// None of these events are visible to storage callers; the bridge's
// public contract degrades silently, and events exist so an operator
// with a debug flag enabled can see why.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time

	// Component that emitted the event (monitor, request, queue, ...).
	Component Component

	// Category classifies the event type.
	Category Category

	// Message is a short human-readable description.
	Message string

	// Key is the storage key involved, if any.
	Key string

	// RequestID is the correlation id involved, if any.
	RequestID string

	// State carries a state name for state-change events.
	State string

	// Err is the underlying error for error events, if any.
	Err error
}

// Component identifies which bridge layer emitted an event.
type Component uint8

const (
	// ComponentMonitor is the heartbeat liveness monitor.
	ComponentMonitor Component = 0
	// ComponentRequest is the request/response tracker.
	ComponentRequest Component = 1
	// ComponentQueue is the pending write queue.
	ComponentQueue Component = 2
	// ComponentAdapter is the storage adapter composition root.
	ComponentAdapter Component = 3
	// ComponentFallback is the fallback store boundary.
	ComponentFallback Component = 4
	// ComponentHost is the host-side responder.
	ComponentHost Component = 5
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentMonitor:
		return "MONITOR"
	case ComponentRequest:
		return "REQUEST"
	case ComponentQueue:
		return "QUEUE"
	case ComponentAdapter:
		return "ADAPTER"
	case ComponentFallback:
		return "FALLBACK"
	case ComponentHost:
		return "HOST"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategoryDrop indicates something was silently discarded
	// (stale reply, expired queued write, malformed frame).
	CategoryDrop Category = 1
	// CategoryDegrade indicates a fall back to local-only behavior.
	CategoryDegrade Category = 2
	// CategoryError indicates a caught boundary error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryDrop:
		return "DROP"
	case CategoryDegrade:
		return "DEGRADE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
