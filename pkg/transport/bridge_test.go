package transport

import (
	"sync"
	"testing"
	"time"
)

// collect registers a handler that appends inbound messages to a slice.
func collect(ep *Endpoint) (func() []string, *sync.Mutex) {
	var mu sync.Mutex
	var got []string
	ep.OnReceive(func(data []byte) {
		mu.Lock()
		got = append(got, string(data))
		mu.Unlock()
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}, &mu
}

func TestBridgeDelivers(t *testing.T) {
	widget, host := NewBridge(BridgeConfig{})
	defer widget.Close()
	defer host.Close()

	got, _ := collect(host)

	if err := widget.Send([]byte("hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	deadline := time.After(time.Second)
	for len(got()) == 0 {
		select {
		case <-deadline:
			t.Fatal("message never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if msgs := got(); msgs[0] != "hello" {
		t.Errorf("received %q, want %q", msgs[0], "hello")
	}
}

func TestBridgePreservesArrivalOrder(t *testing.T) {
	widget, host := NewBridge(BridgeConfig{Latency: time.Millisecond})
	defer widget.Close()
	defer host.Close()

	got, _ := collect(host)

	want := []string{"a", "b", "c", "d", "e"}
	for _, m := range want {
		if err := widget.Send([]byte(m)); err != nil {
			t.Fatalf("Send(%q) error = %v", m, err)
		}
	}

	deadline := time.After(time.Second)
	for len(got()) < len(want) {
		select {
		case <-deadline:
			t.Fatalf("only %d of %d messages delivered", len(got()), len(want))
		case <-time.After(5 * time.Millisecond):
		}
	}

	for i, m := range got() {
		if m != want[i] {
			t.Errorf("message %d = %q, want %q", i, m, want[i])
		}
	}
}

func TestBridgeOriginMismatchDropsSilently(t *testing.T) {
	widget, host := NewBridge(BridgeConfig{
		WidgetOrigin: "https://widget.example",
		HostOrigin:   "https://host.example",
	})
	defer widget.Close()
	defer host.Close()

	// Rewire the widget's target to a different origin than the host's.
	widget.peerOrigin = "https://evil.example"

	got, _ := collect(host)

	if err := widget.Send([]byte("secret")); err != nil {
		t.Fatalf("Send() error = %v, want nil (silent drop)", err)
	}

	time.Sleep(30 * time.Millisecond)
	if len(got()) != 0 {
		t.Errorf("message delivered across origin mismatch: %v", got())
	}
}

func TestBridgeSilentDropsEverything(t *testing.T) {
	widget, host := NewBridge(BridgeConfig{})
	defer widget.Close()
	defer host.Close()

	got, _ := collect(host)

	widget.bridge.SetSilent(true)
	for i := 0; i < 5; i++ {
		if err := widget.Send([]byte("x")); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	time.Sleep(30 * time.Millisecond)
	if len(got()) != 0 {
		t.Errorf("silent bridge delivered %d messages", len(got()))
	}

	// Recovery: messages flow again once silence ends.
	widget.bridge.SetSilent(false)
	if err := widget.Send([]byte("back")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	deadline := time.After(time.Second)
	for len(got()) == 0 {
		select {
		case <-deadline:
			t.Fatal("message never delivered after silence lifted")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	widget, host := NewBridge(BridgeConfig{})
	defer host.Close()

	if err := widget.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Close is idempotent.
	if err := widget.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := widget.Send([]byte("x")); err != ErrChannelClosed {
		t.Errorf("Send() after close = %v, want ErrChannelClosed", err)
	}
}
