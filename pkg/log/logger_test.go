package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}

	custom := &SlogAdapter{}
	if OrNoop(custom) != custom {
		t.Error("OrNoop should pass through a non-nil logger")
	}
}

func TestComponentAndCategoryNames(t *testing.T) {
	if got := ComponentMonitor.String(); got != "MONITOR" {
		t.Errorf("ComponentMonitor = %q", got)
	}
	if got := Component(99).String(); got != "UNKNOWN" {
		t.Errorf("unknown component = %q", got)
	}
	if got := CategoryDegrade.String(); got != "DEGRADE" {
		t.Errorf("CategoryDegrade = %q", got)
	}
	if got := Category(99).String(); got != "UNKNOWN" {
		t.Errorf("unknown category = %q", got)
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	adapter.Log(Event{
		Component: ComponentQueue,
		Category:  CategoryDrop,
		Message:   "queued write expired",
		Key:       "session_id",
	})
	adapter.Log(Event{
		Component: ComponentFallback,
		Category:  CategoryError,
		Message:   "store write failed",
		Err:       errors.New("quota exceeded"),
	})

	out := buf.String()
	for _, want := range []string{"queued write expired", "component=QUEUE", "key=session_id", "quota exceeded", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
