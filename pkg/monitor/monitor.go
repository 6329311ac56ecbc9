package monitor

import (
	"sync"
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/log"
)

// Heartbeat defaults.
const (
	// DefaultHeartbeatInterval is the default interval between pings.
	DefaultHeartbeatInterval = 5 * time.Second

	// DefaultHeartbeatTimeout is the default timeout waiting for a
	// pong reply. Must be shorter than the interval: misses are
	// evaluated on the next ping tick.
	DefaultHeartbeatTimeout = 2 * time.Second

	// DefaultMaxFailedPings is the default number of consecutive
	// missed replies before the peer is considered unreachable.
	DefaultMaxFailedPings = 3

	// latencyAlpha is the EWMA smoothing factor for the running
	// latency average: avg = avg*(1-alpha) + sample*alpha.
	latencyAlpha = 0.3
)

// State represents the peer reachability state.
type State uint8

const (
	// StateConnecting indicates a probe cycle is underway and no
	// reply has confirmed the peer yet.
	StateConnecting State = iota

	// StateConnected indicates the peer answered a recent heartbeat.
	StateConnected

	// StateDisconnected indicates MaxFailedPings consecutive probes
	// went unanswered.
	StateDisconnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Config configures the heartbeat monitor.
type Config struct {
	// HeartbeatInterval is the interval between pings.
	HeartbeatInterval time.Duration

	// HeartbeatTimeout is how long after a ping its reply may arrive
	// before the ping counts as missed.
	HeartbeatTimeout time.Duration

	// MaxFailedPings is the number of consecutive missed replies
	// before transitioning to StateDisconnected.
	MaxFailedPings int

	// AutoRecover restarts a probe cycle immediately after a
	// disconnect instead of staying down.
	AutoRecover bool
}

// DefaultConfig returns the default heartbeat configuration.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		MaxFailedPings:    DefaultMaxFailedPings,
		AutoRecover:       true,
	}
}

// Stats is a snapshot of the monitor's liveness statistics.
type Stats struct {
	// AverageLatency is the EWMA of observed round-trip times.
	// Zero until the first reply arrives.
	AverageLatency time.Duration

	// FailedPings is the live consecutive-miss counter. Reset to
	// zero by every matching reply.
	FailedPings int
}

// Listener receives every state transition, in order, exactly once.
type Listener func(state State, stats Stats)

// SendFunc transmits a ping stamped with the given send time.
// A synchronous error is treated the same as a missed reply.
type SendFunc func(sentAt time.Time) error

// Monitor is the single source of truth for whether the far side of
// the channel is reachable. It probes with pings carrying their own
// send time and expects replies echoing that time.
//
// State machine:
//
//	connecting   → connected     first matching reply
//	connected    → disconnected  MaxFailedPings consecutive misses
//	disconnected → connecting    immediately, when AutoRecover is set
//	connecting   → disconnected  the recovery cycle also times out
//
// All transitions are emitted from a single goroutine, so listeners
// observe them in order without duplication.
type Monitor struct {
	cfg      Config
	sendPing SendFunc
	logger   log.Logger

	mu sync.Mutex

	state      State
	missed     int
	avgLatency time.Duration
	haveAvg    bool

	// Outstanding probe, identified by its send time in unix nanos.
	// Zero means no probe is awaiting a reply.
	pendingSentAt int64
	lastPingTime  time.Time

	listeners  map[int]Listener
	nextListID int

	running bool
	stopCh  chan struct{}
	pongCh  chan int64
	wg      sync.WaitGroup
}

// New creates a heartbeat monitor. Zero config fields are filled from
// defaults; AutoRecover is honored as given.
func New(cfg Config, sendPing SendFunc, logger log.Logger) *Monitor {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.MaxFailedPings <= 0 {
		cfg.MaxFailedPings = DefaultMaxFailedPings
	}

	return &Monitor{
		cfg:       cfg,
		sendPing:  sendPing,
		logger:    log.OrNoop(logger),
		state:     StateConnecting,
		listeners: make(map[int]Listener),
		pongCh:    make(chan int64, 4),
	}
}

// Start begins the probe loop. The first ping goes out immediately.
// Calling Start on a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop()
}

// Stop cancels the probe timer. Safe to call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

// HandlePong feeds a heartbeat reply into the monitor. echoedSentAt is
// the send time the reply carries, in unix nanoseconds. Replies are
// processed in arrival order on the monitor's own goroutine.
func (m *Monitor) HandlePong(echoedSentAt int64) {
	select {
	case m.pongCh <- echoedSentAt:
	default:
		// Inbox full; the next reply carries the same information.
	}
}

// State returns the current reachability state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns the current liveness statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{AverageLatency: m.avgLatency, FailedPings: m.missed}
}

// AddListener registers fn for state transitions and returns its
// unsubscribe function.
func (m *Monitor) AddListener(fn Listener) func() {
	m.mu.Lock()
	id := m.nextListID
	m.nextListID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// loop is the probe cycle. Misses are evaluated at each tick before
// the next ping goes out, so with interval I, timeout T and max misses
// N the peer is declared unreachable N*I after replies stop.
func (m *Monitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	m.probe()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick()
		case echoed := <-m.pongCh:
			m.reply(echoed)
		}
	}
}

// probe sends one ping and records it as outstanding. Send failures
// are logged and otherwise treated like silence: the tick will count
// the miss.
func (m *Monitor) probe() {
	now := time.Now()

	m.mu.Lock()
	m.lastPingTime = now
	m.pendingSentAt = now.UnixNano()
	m.mu.Unlock()

	if err := m.sendPing(now); err != nil {
		m.logger.Log(log.Event{
			Timestamp: now,
			Component: log.ComponentMonitor,
			Category:  log.CategoryError,
			Message:   "heartbeat send failed",
			Err:       err,
		})
	}
}

// tick evaluates the outstanding probe and sends the next one. A probe
// still pending here went a full interval without a reply, which covers
// the timeout window even when a caller configures a timeout longer
// than the interval; it must count as missed before the next probe
// overwrites it, or total silence would never drain the miss budget.
func (m *Monitor) tick() {
	m.mu.Lock()

	if m.pendingSentAt != 0 {
		m.pendingSentAt = 0
		m.missed++

		if m.missed >= m.cfg.MaxFailedPings && m.state != StateDisconnected {
			m.transitionLocked(StateDisconnected)
			if m.cfg.AutoRecover {
				// Fresh probe cycle: the miss budget starts over.
				m.missed = 0
				m.transitionLocked(StateConnecting)
			}
		}
	}

	m.mu.Unlock()

	m.probe()
}

// reply handles a heartbeat reply in arrival order.
func (m *Monitor) reply(echoedSentAt int64) {
	m.mu.Lock()

	if m.pendingSentAt == 0 || echoedSentAt != m.pendingSentAt {
		// Late or duplicate reply for an abandoned probe.
		m.mu.Unlock()
		m.logger.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentMonitor,
			Category:  log.CategoryDrop,
			Message:   "stale heartbeat reply",
		})
		return
	}

	rtt := time.Since(m.lastPingTime)
	if rtt > m.cfg.HeartbeatTimeout {
		// Too slow to count as alive. The probe stays pending so the
		// next tick books the miss.
		m.mu.Unlock()
		m.logger.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentMonitor,
			Category:  log.CategoryDrop,
			Message:   "late heartbeat reply",
		})
		return
	}
	m.pendingSentAt = 0
	m.missed = 0
	if m.haveAvg {
		m.avgLatency = time.Duration(float64(m.avgLatency)*(1-latencyAlpha) + float64(rtt)*latencyAlpha)
	} else {
		m.avgLatency = rtt
		m.haveAvg = true
	}

	if m.state != StateConnected {
		m.transitionLocked(StateConnected)
	}

	m.mu.Unlock()
}

// transitionLocked changes state and notifies listeners. Callers hold
// m.mu; it is released around the listener calls and re-acquired, so
// listeners run unlocked but still in transition order (only the loop
// goroutine transitions).
func (m *Monitor) transitionLocked(next State) {
	m.state = next
	stats := Stats{AverageLatency: m.avgLatency, FailedPings: m.missed}
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentMonitor,
		Category:  log.CategoryState,
		Message:   "reachability changed",
		State:     next.String(),
	})
	for _, fn := range fns {
		fn(next, stats)
	}

	m.mu.Lock()
}
