package request

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framestore-protocol/framestore-go/pkg/log"
	"github.com/framestore-protocol/framestore-go/pkg/retry"
	"github.com/framestore-protocol/framestore-go/pkg/transport"
	"github.com/framestore-protocol/framestore-go/pkg/wire"
)

// Tracker defaults.
const (
	// DefaultMaxAttempts is the default number of send attempts per
	// operation.
	DefaultMaxAttempts = 3

	// DefaultAttemptTimeout is the default per-attempt reply deadline.
	DefaultAttemptTimeout = 3 * time.Second
)

// Config configures the request tracker.
type Config struct {
	// MaxAttempts is the number of send attempts before degrading.
	MaxAttempts int

	// AttemptTimeout is how long each attempt waits for its reply.
	AttemptTimeout time.Duration
}

// Result is the outcome of a remote read. Found=false is the
// absent-value sentinel: the peer answered and the key does not exist.
type Result struct {
	Value string
	Found bool
}

// Tracker converts the channel's fire-and-forget messages into
// awaitable calls with bounded retries.
//
// Each attempt gets a fresh request identifier; a reply is matched to
// its attempt solely by that identifier, so reordering or duplication
// on the channel cannot corrupt state. When an attempt times out its
// identifier is abandoned, and a late reply naming it is dropped.
//
// Tracker itself never reports transport errors as errors: Read and
// Write return a delivered/acked flag and the adapter above chooses
// the degradation (fallback read, queued write).
type Tracker struct {
	cfg    Config
	ch     transport.Channel
	policy *retry.Policy
	logger log.Logger

	pendingMu sync.RWMutex
	pending   map[string]chan *wire.Message

	closeOnce sync.Once
	closedCh  chan struct{}
}

// New creates a tracker sending over ch, backing off between attempts
// per policy. Zero config fields are filled from defaults.
func New(cfg Config, ch transport.Channel, policy *retry.Policy, logger log.Logger) *Tracker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if policy == nil {
		policy = retry.NewPolicy(retry.Config{})
	}

	return &Tracker{
		cfg:      cfg,
		ch:       ch,
		policy:   policy,
		logger:   log.OrNoop(logger),
		pending:  make(map[string]chan *wire.Message),
		closedCh: make(chan struct{}),
	}
}

// Read asks the peer for key. delivered=false means the attempts were
// exhausted (or the channel failed synchronously, or the tracker shut
// down) and the caller must consult the fallback store instead.
func (t *Tracker) Read(ctx context.Context, key string) (Result, bool) {
	reply, delivered := t.issue(ctx, key, func(id string) *wire.Message {
		return wire.NewReadRequest(id, key)
	})
	if !delivered {
		return Result{}, false
	}
	return Result{Value: reply.Value, Found: reply.HasValue}, true
}

// Write asks the peer to store key=value. acked=false means the write
// was not confirmed and the caller must queue it for replay.
func (t *Tracker) Write(ctx context.Context, key, value string) bool {
	_, acked := t.issue(ctx, key, func(id string) *wire.Message {
		return wire.NewWriteRequest(id, key, value)
	})
	return acked
}

// HandleReply feeds an inbound readResponse or writeAck into the
// tracker. Replies with no matching pending request are dropped
// silently, as are replies of any other kind.
func (t *Tracker) HandleReply(msg *wire.Message) {
	if !msg.IsReply() {
		return
	}

	t.pendingMu.RLock()
	ch, exists := t.pending[msg.RequestID]
	t.pendingMu.RUnlock()

	if !exists {
		t.logger.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentRequest,
			Category:  log.CategoryDrop,
			Message:   "stale reply",
			RequestID: msg.RequestID,
		})
		return
	}

	select {
	case ch <- msg:
	default:
		// Duplicate reply for the same id; first one wins.
	}
}

// Close settles every outstanding call immediately (as undelivered)
// and rejects future ones. Safe to call repeatedly.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.closedCh)
	})
}

// issue runs the attempt loop for one operation.
func (t *Tracker) issue(ctx context.Context, key string, build func(id string) *wire.Message) (*wire.Message, bool) {
	select {
	case <-t.closedCh:
		return nil, false
	default:
	}

	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		id := uuid.NewString()

		respCh := make(chan *wire.Message, 1)
		t.pendingMu.Lock()
		t.pending[id] = respCh
		t.pendingMu.Unlock()

		reply, status := t.attempt(ctx, id, respCh, build(id))

		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()

		switch status {
		case attemptReplied:
			return reply, true
		case attemptAborted:
			return nil, false
		}

		// Timed out; back off before the next attempt.
		if attempt < t.cfg.MaxAttempts {
			select {
			case <-time.After(t.policy.DelayFor(attempt)):
			case <-ctx.Done():
				return nil, false
			case <-t.closedCh:
				return nil, false
			}
		}
	}

	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentRequest,
		Category:  log.CategoryDegrade,
		Message:   "attempts exhausted",
		Key:       key,
	})
	return nil, false
}

// attemptStatus is the outcome of a single attempt.
type attemptStatus uint8

const (
	attemptReplied attemptStatus = iota
	attemptTimedOut
	attemptAborted
)

func (t *Tracker) attempt(ctx context.Context, id string, respCh chan *wire.Message, msg *wire.Message) (*wire.Message, attemptStatus) {
	data, err := wire.Encode(msg)
	if err != nil {
		t.logger.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentRequest,
			Category:  log.CategoryError,
			Message:   "encode failed",
			RequestID: id,
			Err:       err,
		})
		return nil, attemptAborted
	}

	if err := t.ch.Send(data); err != nil {
		// Channel unusable right now: no point in retrying, degrade
		// straight to the fallback path.
		t.logger.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentRequest,
			Category:  log.CategoryDegrade,
			Message:   "channel send failed",
			RequestID: id,
			Err:       err,
		})
		return nil, attemptAborted
	}

	timer := time.NewTimer(t.cfg.AttemptTimeout)
	defer timer.Stop()

	select {
	case reply := <-respCh:
		return reply, attemptReplied
	case <-timer.C:
		return nil, attemptTimedOut
	case <-ctx.Done():
		return nil, attemptAborted
	case <-t.closedCh:
		return nil, attemptAborted
	}
}
