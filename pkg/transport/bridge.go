package transport

import (
	"math/rand"
	"sync"
	"time"
)

// AnyOrigin disables origin checking on an endpoint. Production
// configurations must name a specific peer origin; AnyOrigin exists
// for test harnesses and local simulation.
const AnyOrigin = "*"

// deliveryBuffer is the per-endpoint inbound queue depth. When the
// queue is full further messages are dropped, matching the channel's
// best-effort contract.
const deliveryBuffer = 256

// BridgeConfig configures an in-process message bridge.
type BridgeConfig struct {
	// WidgetOrigin and HostOrigin label the two endpoints. Each
	// endpoint only accepts messages addressed to its own origin.
	WidgetOrigin string
	HostOrigin   string

	// Latency is an artificial one-way delivery delay.
	Latency time.Duration

	// DropRate is the probability in [0,1) that a message is
	// silently discarded in transit.
	DropRate float64

	// Seed seeds the drop decision RNG. Zero means time-based.
	Seed int64
}

// Bridge connects two Endpoints with postMessage-like semantics:
// asynchronous delivery, origin targeting, and configurable loss.
// It is the channel implementation used by tests and the simulator.
type Bridge struct {
	mu       sync.Mutex
	widget   *Endpoint
	host     *Endpoint
	latency  time.Duration
	dropRate float64
	silent   bool
	rng      *rand.Rand
}

// NewBridge creates a connected pair of endpoints. The first return
// value is the widget side, the second the host side.
func NewBridge(cfg BridgeConfig) (*Endpoint, *Endpoint) {
	if cfg.WidgetOrigin == "" {
		cfg.WidgetOrigin = AnyOrigin
	}
	if cfg.HostOrigin == "" {
		cfg.HostOrigin = AnyOrigin
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	b := &Bridge{
		latency:  cfg.Latency,
		dropRate: cfg.DropRate,
		rng:      rand.New(rand.NewSource(seed)),
	}
	b.widget = newEndpoint(b, cfg.WidgetOrigin, cfg.HostOrigin)
	b.host = newEndpoint(b, cfg.HostOrigin, cfg.WidgetOrigin)
	return b.widget, b.host
}

// SetDropRate changes the in-transit drop probability.
func (b *Bridge) SetDropRate(rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	b.dropRate = rate
}

// SetLatency changes the artificial one-way delivery delay.
func (b *Bridge) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// SetSilent drops every message in transit while enabled. Simulates a
// host page that stopped responding without closing the channel.
func (b *Bridge) SetSilent(silent bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.silent = silent
}

// shouldDrop decides whether a message in transit is lost.
func (b *Bridge) shouldDrop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.silent {
		return true
	}
	return b.dropRate > 0 && b.rng.Float64() < b.dropRate
}

func (b *Bridge) currentLatency() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latency
}

// Endpoint is one side of a Bridge. It implements Channel.
//
// Delivery runs on a single goroutine per endpoint so inbound messages
// are handled strictly in arrival order.
type Endpoint struct {
	bridge     *Bridge
	origin     string
	peerOrigin string

	mu      sync.Mutex
	handler func(data []byte)
	closed  bool

	inbox chan []byte
	done  chan struct{}
}

func newEndpoint(b *Bridge, origin, peerOrigin string) *Endpoint {
	ep := &Endpoint{
		bridge:     b,
		origin:     origin,
		peerOrigin: peerOrigin,
		inbox:      make(chan []byte, deliveryBuffer),
		done:       make(chan struct{}),
	}
	go ep.deliverLoop()
	return ep
}

// Bridge returns the bridge both endpoints share, for adjusting loss
// and latency while traffic flows.
func (ep *Endpoint) Bridge() *Bridge {
	return ep.bridge
}

// Origin returns this endpoint's own origin label.
func (ep *Endpoint) Origin() string {
	return ep.origin
}

// Send transmits data to the peer endpoint, best effort. The message
// is addressed to the configured peer origin; if the far side's actual
// origin does not match, the message is discarded without error, the
// same way a targeted postMessage to the wrong origin disappears.
func (ep *Endpoint) Send(data []byte) error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return ErrChannelClosed
	}
	ep.mu.Unlock()

	peer := ep.peer()
	if peer == nil {
		return ErrNoPeer
	}

	if ep.peerOrigin != AnyOrigin && peer.origin != AnyOrigin && ep.peerOrigin != peer.origin {
		return nil
	}
	if ep.bridge.shouldDrop() {
		return nil
	}

	// Copy so the sender can reuse its buffer.
	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case peer.inbox <- buf:
	default:
		// Inbox full: best-effort channel, drop.
	}
	return nil
}

// OnReceive registers the inbound message handler.
func (ep *Endpoint) OnReceive(fn func(data []byte)) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.handler = fn
}

// Close shuts the endpoint down. Queued undelivered messages are lost.
func (ep *Endpoint) Close() error {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.closed {
		return nil
	}
	ep.closed = true
	close(ep.done)
	return nil
}

func (ep *Endpoint) peer() *Endpoint {
	if ep.bridge.widget == ep {
		return ep.bridge.host
	}
	return ep.bridge.widget
}

// deliverLoop drains the inbox sequentially, applying the configured
// latency before each handler invocation.
func (ep *Endpoint) deliverLoop() {
	for {
		select {
		case <-ep.done:
			return
		case data := <-ep.inbox:
			if latency := ep.bridge.currentLatency(); latency > 0 {
				select {
				case <-ep.done:
					return
				case <-time.After(latency):
				}
			}

			ep.mu.Lock()
			handler := ep.handler
			closed := ep.closed
			ep.mu.Unlock()

			if closed {
				return
			}
			if handler != nil {
				handler(data)
			}
		}
	}
}

// Compile-time interface satisfaction check.
var _ Channel = (*Endpoint)(nil)
