package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/retry"
	"github.com/framestore-protocol/framestore-go/pkg/wire"
)

// scriptChannel is a Channel test double that records outbound
// requests and answers them according to a script.
type scriptChannel struct {
	mu      sync.Mutex
	sent    []*wire.Message
	sentAt  []time.Time
	sendErr error

	// respond builds the reply for a request, or nil for silence.
	respond func(req *wire.Message) *wire.Message

	handler func(data []byte)
}

func (c *scriptChannel) Send(data []byte) error {
	c.mu.Lock()
	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()
		return err
	}
	msg, err := wire.Decode(data)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sent = append(c.sent, msg)
	c.sentAt = append(c.sentAt, time.Now())
	respond := c.respond
	handler := c.handler
	c.mu.Unlock()

	if respond == nil || handler == nil {
		return nil
	}
	reply := respond(msg)
	if reply == nil {
		return nil
	}
	go func() {
		data, err := wire.Encode(reply)
		if err != nil {
			return
		}
		handler(data)
	}()
	return nil
}

func (c *scriptChannel) OnReceive(fn func(data []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

func (c *scriptChannel) Close() error { return nil }

func (c *scriptChannel) requests() []*wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*wire.Message(nil), c.sent...)
}

func (c *scriptChannel) times() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.sentAt...)
}

// newTestTracker wires a tracker to a scripted channel, dispatching
// the channel's inbound frames to HandleReply like the adapter does.
func newTestTracker(cfg Config, policy *retry.Policy, ch *scriptChannel) *Tracker {
	t := New(cfg, ch, policy, nil)
	ch.OnReceive(func(data []byte) {
		msg, err := wire.Decode(data)
		if err != nil {
			return
		}
		t.HandleReply(msg)
	})
	return t
}

func fastPolicy(initial time.Duration) *retry.Policy {
	return retry.NewPolicy(retry.Config{Initial: initial, Multiplier: 2})
}

func TestReadRoundTrip(t *testing.T) {
	ch := &scriptChannel{
		respond: func(req *wire.Message) *wire.Message {
			return wire.NewReadResponse(req.RequestID, req.Key, "abc", true)
		},
	}
	tr := newTestTracker(Config{AttemptTimeout: time.Second}, fastPolicy(10*time.Millisecond), ch)
	defer tr.Close()

	res, delivered := tr.Read(context.Background(), "session_id")
	if !delivered {
		t.Fatal("Read() not delivered")
	}
	if !res.Found || res.Value != "abc" {
		t.Errorf("Read() = %+v, want {abc true}", res)
	}
}

func TestAbsentKeyIsNotAnError(t *testing.T) {
	ch := &scriptChannel{
		respond: func(req *wire.Message) *wire.Message {
			return wire.NewReadResponse(req.RequestID, req.Key, "", false)
		},
	}
	tr := newTestTracker(Config{AttemptTimeout: time.Second}, fastPolicy(10*time.Millisecond), ch)
	defer tr.Close()

	res, delivered := tr.Read(context.Background(), "missing")
	if !delivered {
		t.Fatal("Read() not delivered")
	}
	if res.Found {
		t.Errorf("Read() = %+v, want absent sentinel", res)
	}
}

func TestExhaustionSpacingAndAttemptCount(t *testing.T) {
	// maxAttempts=3, initialDelay=30ms, multiplier=2, total silence:
	// exactly 3 attempts spaced by ~30ms then ~60ms, then degrade.
	ch := &scriptChannel{} // never responds
	tr := newTestTracker(Config{
		MaxAttempts:    3,
		AttemptTimeout: 20 * time.Millisecond,
	}, fastPolicy(30*time.Millisecond), ch)
	defer tr.Close()

	_, delivered := tr.Read(context.Background(), "k")
	if delivered {
		t.Fatal("Read() delivered despite total silence")
	}

	reqs := ch.requests()
	if len(reqs) != 3 {
		t.Fatalf("sent %d attempts, want exactly 3", len(reqs))
	}

	// Fresh request id per attempt.
	ids := map[string]bool{}
	for _, r := range reqs {
		ids[r.RequestID] = true
	}
	if len(ids) != 3 {
		t.Errorf("%d distinct request ids across 3 attempts, want 3", len(ids))
	}

	// Gap between attempts = attempt timeout + backoff delay.
	times := ch.times()
	gap1 := times[1].Sub(times[0])
	gap2 := times[2].Sub(times[1])
	if gap1 < 45*time.Millisecond || gap1 > 120*time.Millisecond {
		t.Errorf("gap1 = %v, want ~50ms (20ms timeout + 30ms backoff)", gap1)
	}
	if gap2 < 75*time.Millisecond || gap2 > 180*time.Millisecond {
		t.Errorf("gap2 = %v, want ~80ms (20ms timeout + 60ms backoff)", gap2)
	}
}

func TestSyncSendFailureSkipsRetries(t *testing.T) {
	ch := &scriptChannel{sendErr: errors.New("channel closed")}
	tr := newTestTracker(Config{
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
	}, fastPolicy(10*time.Millisecond), ch)
	defer tr.Close()

	start := time.Now()
	_, delivered := tr.Read(context.Background(), "k")
	if delivered {
		t.Fatal("Read() delivered despite send failure")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("degraded after %v, want immediately (no retries)", elapsed)
	}
}

func TestWriteAck(t *testing.T) {
	ch := &scriptChannel{
		respond: func(req *wire.Message) *wire.Message {
			return wire.NewWriteAck(req.RequestID)
		},
	}
	tr := newTestTracker(Config{AttemptTimeout: time.Second}, fastPolicy(10*time.Millisecond), ch)
	defer tr.Close()

	if !tr.Write(context.Background(), "consent", "granted") {
		t.Error("Write() not acked")
	}

	req := ch.requests()[0]
	if req.Kind != wire.KindWriteRequest || req.Key != "consent" || req.Value != "granted" {
		t.Errorf("sent %+v, want writeRequest consent=granted", req)
	}
}

func TestUnackedWriteReportsFalse(t *testing.T) {
	ch := &scriptChannel{}
	tr := newTestTracker(Config{
		MaxAttempts:    2,
		AttemptTimeout: 15 * time.Millisecond,
	}, fastPolicy(10*time.Millisecond), ch)
	defer tr.Close()

	if tr.Write(context.Background(), "k", "v") {
		t.Error("Write() acked despite silence")
	}
	if n := len(ch.requests()); n != 2 {
		t.Errorf("sent %d attempts, want 2", n)
	}
}

func TestStaleReplyDroppedSilently(t *testing.T) {
	ch := &scriptChannel{}
	tr := newTestTracker(Config{AttemptTimeout: time.Second}, fastPolicy(10*time.Millisecond), ch)
	defer tr.Close()

	// No pending request for this id; must not panic or leak.
	tr.HandleReply(wire.NewReadResponse("never-issued", "k", "v", true))
	tr.HandleReply(wire.NewWriteAck("also-never-issued"))
	// Non-reply kinds are ignored outright.
	tr.HandleReply(wire.NewReadRequest("id", "k"))
}

func TestOrphanedAttemptIgnoresLateReply(t *testing.T) {
	// First attempt times out; its reply arrives during the second
	// attempt and must not satisfy it.
	var mu sync.Mutex
	var firstID string
	ch := &scriptChannel{}
	ch.respond = func(req *wire.Message) *wire.Message {
		mu.Lock()
		defer mu.Unlock()
		if firstID == "" {
			firstID = req.RequestID
			return nil // silence for attempt one
		}
		// Answer attempt two correctly.
		return wire.NewReadResponse(req.RequestID, req.Key, "fresh", true)
	}

	tr := newTestTracker(Config{
		MaxAttempts:    2,
		AttemptTimeout: 20 * time.Millisecond,
	}, fastPolicy(5*time.Millisecond), ch)
	defer tr.Close()

	done := make(chan Result, 1)
	go func() {
		res, _ := tr.Read(context.Background(), "k")
		done <- res
	}()

	// Deliver a late reply for the abandoned first id once attempt
	// two is in flight.
	deadline := time.After(2 * time.Second)
	for {
		if len(ch.requests()) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("second attempt never sent")
		case <-time.After(2 * time.Millisecond):
		}
	}
	mu.Lock()
	stale := wire.NewReadResponse(firstID, "k", "stale", true)
	mu.Unlock()
	tr.HandleReply(stale)

	res := <-done
	if res.Value != "fresh" {
		t.Errorf("Read() = %q, want fresh (late reply must be orphaned)", res.Value)
	}
}

func TestCloseSettlesOutstandingCalls(t *testing.T) {
	ch := &scriptChannel{} // silent
	tr := newTestTracker(Config{
		MaxAttempts:    3,
		AttemptTimeout: 10 * time.Second, // would hang without Close
	}, fastPolicy(time.Second), ch)

	done := make(chan bool, 1)
	go func() {
		_, delivered := tr.Read(context.Background(), "k")
		done <- delivered
	}()

	// Let the attempt begin, then shut down.
	time.Sleep(20 * time.Millisecond)
	tr.Close()
	tr.Close() // idempotent

	select {
	case delivered := <-done:
		if delivered {
			t.Error("Read() delivered after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Read() hung after Close")
	}

	// New calls settle immediately.
	if _, delivered := tr.Read(context.Background(), "k"); delivered {
		t.Error("Read() on closed tracker delivered")
	}
}
