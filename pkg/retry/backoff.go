package retry

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff defaults.
const (
	// DefaultInitialDelay is the delay before the second attempt.
	DefaultInitialDelay = 250 * time.Millisecond

	// DefaultMaxDelay caps the delay between attempts.
	DefaultMaxDelay = 10 * time.Second

	// DefaultMultiplier is the factor by which the delay grows.
	DefaultMultiplier = 2.0
)

// Config customizes backoff parameters.
type Config struct {
	// Initial is the delay after the first failed attempt.
	Initial time.Duration

	// Max caps the computed delay.
	Max time.Duration

	// Multiplier is the per-attempt growth factor.
	Multiplier float64

	// Jitter is the maximum extra delay as a fraction of the base
	// delay. Zero disables jitter, which keeps retry timing exact;
	// enable it when many bridge instances share one host.
	Jitter float64
}

// Policy computes bounded exponential backoff delays.
//
// The delay before re-issuing attempt n+1 is
//
//	initial * multiplier^(n-1)
//
// capped at Max, plus optional jitter. Policy is stateless apart from
// its jitter RNG, so one instance can serve many concurrent requests.
type Policy struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy creates a backoff policy, filling zero fields from defaults.
func NewPolicy(cfg Config) *Policy {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitialDelay
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMaxDelay
	}
	// A multiplier of exactly 1 is a valid constant-delay policy.
	if cfg.Multiplier < 1 {
		cfg.Multiplier = DefaultMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	return &Policy{
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DelayFor returns the delay to wait after attempt number `attempt`
// (1-based) fails. DelayFor(0) and DelayFor(1) both return the initial
// delay.
func (p *Policy) DelayFor(attempt int) time.Duration {
	d := p.initial
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.multiplier)
		if d >= p.max {
			d = p.max
			break
		}
	}
	return p.addJitter(d)
}

// Sequence returns the base delays (without jitter) for n attempts.
// Used for observability and tests.
func (p *Policy) Sequence(n int) []time.Duration {
	seq := make([]time.Duration, 0, n)
	for i := 1; i <= n; i++ {
		d := p.initial
		for j := 1; j < i; j++ {
			d = time.Duration(float64(d) * p.multiplier)
			if d >= p.max {
				d = p.max
				break
			}
		}
		seq = append(seq, d)
	}
	return seq
}

// addJitter adds random jitter to a delay.
func (p *Policy) addJitter(d time.Duration) time.Duration {
	if p.jitter <= 0 {
		return d
	}
	p.mu.Lock()
	f := p.rng.Float64()
	p.mu.Unlock()
	return d + time.Duration(float64(d)*p.jitter*f)
}
