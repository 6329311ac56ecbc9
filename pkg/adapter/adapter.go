package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/cache"
	"github.com/framestore-protocol/framestore-go/pkg/config"
	"github.com/framestore-protocol/framestore-go/pkg/fallback"
	"github.com/framestore-protocol/framestore-go/pkg/log"
	"github.com/framestore-protocol/framestore-go/pkg/monitor"
	"github.com/framestore-protocol/framestore-go/pkg/queue"
	"github.com/framestore-protocol/framestore-go/pkg/request"
	"github.com/framestore-protocol/framestore-go/pkg/retry"
	"github.com/framestore-protocol/framestore-go/pkg/transport"
	"github.com/framestore-protocol/framestore-go/pkg/wire"
)

// Adapter is the storage surface handed to the widget. It composes the
// heartbeat monitor, request tracker, read cache, write queue, and
// fallback store into getItem/setItem calls that never fail: every
// transport problem degrades to the fallback store instead.
//
// A nil channel selects single-context mode: the widget runs without a
// host frame, no monitor or tracker is started, and all traffic goes
// straight to the fallback store.
type Adapter struct {
	opts   config.Options
	ch     transport.Channel
	store  *fallback.Guarded
	cache  *cache.Cache
	queue  *queue.Queue
	logger log.Logger

	// nil in single-context mode
	mon     *monitor.Monitor
	tracker *request.Tracker

	mu          sync.Mutex
	debounce    map[string]*debounceEntry
	destroyed   bool
	draining    bool
	unsubscribe func()

	sweepStop chan struct{}
	wg        sync.WaitGroup
}

// debounceEntry tracks one key's quiet-period window. The timer is
// owned by the adapter so Destroy can cancel it deterministically.
type debounceEntry struct {
	timer *time.Timer
	value string
}

// New creates an adapter over ch, mirroring into store. Zero option
// fields are filled from defaults. A nil ch selects single-context
// mode; a nil logger disables diagnostics.
func New(opts config.Options, ch transport.Channel, store fallback.Store, logger log.Logger) *Adapter {
	opts.ApplyDefaults()
	logger = log.OrNoop(logger)

	guarded := fallback.NewGuarded(store, logger)
	a := &Adapter{
		opts:      opts,
		ch:        ch,
		store:     guarded,
		cache:     cache.New(opts.CacheTTL),
		queue:     queue.New(guarded, opts.QueueMaxAge, logger),
		logger:    logger,
		debounce:  make(map[string]*debounceEntry),
		sweepStop: make(chan struct{}),
	}

	if ch != nil {
		policy := retry.NewPolicy(opts.RetryConfig())
		a.tracker = request.New(opts.TrackerConfig(), ch, policy, logger)
		a.mon = monitor.New(opts.MonitorConfig(), a.sendPing, logger)
		a.unsubscribe = a.mon.AddListener(a.onTransition)
		ch.OnReceive(a.dispatch)
		a.mon.Start()
	}

	a.wg.Add(1)
	go a.sweepLoop()

	return a
}

// GetItem returns the value for key and whether it exists. It never
// returns an error: transport failures fall back to the last locally
// known value.
func (a *Adapter) GetItem(ctx context.Context, key string) (string, bool) {
	if value, found, hit := a.cache.Get(key); hit {
		return value, found
	}

	a.mu.Lock()
	destroyed := a.destroyed
	_, debouncing := a.debounce[key]
	a.mu.Unlock()

	// Single-context mode bypasses the remote path entirely.
	if a.tracker == nil || destroyed {
		return a.store.Get(key)
	}

	// A write for this key is still in flight locally, so the peer's
	// answer would be staler than what this instance itself wrote.
	if debouncing || a.queue.Has(key) {
		return a.store.Get(key)
	}

	res, delivered := a.tracker.Read(ctx, key)
	if !delivered {
		a.logger.Log(log.Event{
			Component: log.ComponentAdapter,
			Category:  log.CategoryDegrade,
			Message:   "read degraded to fallback",
			Key:       key,
		})
		return a.store.Get(key)
	}
	if !res.Found {
		// A confirmed absence is as cacheable as a value.
		a.cache.SetAbsent(key)
		return "", false
	}
	a.cache.Set(key, res.Value)
	return res.Value, true
}

// SetItem stores value under key. The fallback store is updated and the
// cache entry invalidated synchronously on every call; the outbound
// write is debounced per key, so rapid repeated calls coalesce into one
// message carrying the final value.
func (a *Adapter) SetItem(key, value string) {
	a.store.Set(key, value)
	a.cache.Invalidate(key)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed || a.tracker == nil {
		return
	}

	if entry, ok := a.debounce[key]; ok {
		entry.value = value
		entry.timer.Reset(a.opts.Debounce)
		return
	}
	entry := &debounceEntry{value: value}
	entry.timer = time.AfterFunc(a.opts.Debounce, func() { a.flush(key) })
	a.debounce[key] = entry
}

// QueueSize reports how many offline writes await replay.
func (a *Adapter) QueueSize() int {
	return a.queue.Size()
}

// State reports the monitor's connection state. Single-context mode
// reports connected: the fallback store is always reachable.
func (a *Adapter) State() monitor.State {
	if a.mon == nil {
		return monitor.StateConnected
	}
	return a.mon.State()
}

// Stats reports heartbeat statistics, zero in single-context mode.
func (a *Adapter) Stats() monitor.Stats {
	if a.mon == nil {
		return monitor.Stats{}
	}
	return a.mon.Stats()
}

// Destroy stops every owned timer, flushes pending debounce windows
// best-effort, and settles all outstanding calls. Idempotent. The
// fallback store keeps every written value, so nothing is lost.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true

	// Cancel every debounce timer and capture the values still
	// waiting for their quiet period.
	pending := make(map[string]string)
	for key, entry := range a.debounce {
		if entry.timer.Stop() {
			pending[key] = entry.value
		}
	}
	a.debounce = make(map[string]*debounceEntry)
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()

	// Flush concurrently so tracker.Close below settles the sends
	// instead of Destroy waiting out the full retry budget.
	for key, value := range pending {
		a.wg.Add(1)
		go func(key, value string) {
			defer a.wg.Done()
			a.send(key, value)
		}(key, value)
	}

	if unsubscribe != nil {
		unsubscribe()
	}
	if a.mon != nil {
		a.mon.Stop()
	}
	close(a.sweepStop)
	if a.tracker != nil {
		a.tracker.Close()
	}
	a.wg.Wait()
}

// sendPing is the monitor's probe function.
func (a *Adapter) sendPing(sentAt time.Time) error {
	data, err := wire.Encode(wire.NewPing(sentAt))
	if err != nil {
		return err
	}
	return a.ch.Send(data)
}

// dispatch routes inbound frames. Host-side request kinds have no
// business arriving here and are dropped with a diagnostic.
func (a *Adapter) dispatch(data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		a.logger.Log(log.Event{
			Component: log.ComponentAdapter,
			Category:  log.CategoryDrop,
			Message:   "undecodable frame dropped",
			Err:       err,
		})
		return
	}

	switch msg.Kind {
	case wire.KindPong:
		a.mon.HandlePong(msg.SentAt)
	case wire.KindReadResponse, wire.KindWriteAck:
		a.tracker.HandleReply(msg)
	case wire.KindPing, wire.KindReadRequest, wire.KindWriteRequest:
		a.logger.Log(log.Event{
			Component: log.ComponentAdapter,
			Category:  log.CategoryDrop,
			Message:   "unexpected " + msg.Kind.String() + " dropped",
			RequestID: msg.RequestID,
		})
	}
}

// onTransition drains the write queue whenever the channel comes back.
func (a *Adapter) onTransition(state monitor.State, _ monitor.Stats) {
	if state != monitor.StateConnected {
		return
	}
	a.mu.Lock()
	if a.destroyed || a.draining || a.queue.Size() == 0 {
		a.mu.Unlock()
		return
	}
	a.draining = true
	a.wg.Add(1) // under mu so Destroy cannot Wait before the Add
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		a.queue.Replay(func(key, value string) bool {
			return a.tracker.Write(context.Background(), key, value)
		})
		a.mu.Lock()
		a.draining = false
		a.mu.Unlock()
	}()
}

// flush fires when a key's debounce window goes quiet.
func (a *Adapter) flush(key string) {
	a.mu.Lock()
	entry, ok := a.debounce[key]
	if !ok || a.destroyed {
		a.mu.Unlock()
		return
	}
	delete(a.debounce, key)
	value := entry.value
	a.mu.Unlock()

	a.send(key, value)
}

// send pushes one coalesced write out, queueing it when the channel is
// down or the write goes unacked.
func (a *Adapter) send(key, value string) {
	if a.mon.State() != monitor.StateConnected {
		a.queue.Enqueue(key, value)
		return
	}
	if !a.tracker.Write(context.Background(), key, value) {
		a.logger.Log(log.Event{
			Component: log.ComponentAdapter,
			Category:  log.CategoryDegrade,
			Message:   "write degraded to queue",
			Key:       key,
		})
		a.queue.Enqueue(key, value)
	}
}

// sweepLoop evicts expired cache entries until Destroy.
func (a *Adapter) sweepLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.opts.CacheTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.cache.Sweep()
		case <-a.sweepStop:
			return
		}
	}
}
