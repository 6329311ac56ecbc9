package config

import (
	"errors"
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/cache"
	"github.com/framestore-protocol/framestore-go/pkg/monitor"
	"github.com/framestore-protocol/framestore-go/pkg/queue"
	"github.com/framestore-protocol/framestore-go/pkg/request"
	"github.com/framestore-protocol/framestore-go/pkg/retry"
)

// ErrInvalidOptions is returned when option validation fails.
var ErrInvalidOptions = errors.New("config: invalid options")

// Options holds every tunable of the storage bridge. Each field can be
// overridden independently; zero values fall back to the documented
// defaults via ApplyDefaults.
type Options struct {
	// HeartbeatInterval is the time between liveness pings.
	HeartbeatInterval time.Duration

	// HeartbeatTimeout is how long a ping may go unanswered before it
	// counts as missed.
	HeartbeatTimeout time.Duration

	// MaxFailedPings is the number of consecutive misses that flips
	// the connection to disconnected.
	MaxFailedPings int

	// AutoRecover re-enters connecting after a disconnect, so a later
	// pong can restore the connection.
	AutoRecover bool

	// MaxAttempts is the number of send attempts per tracked request.
	MaxAttempts int

	// AttemptTimeout is the per-attempt reply deadline.
	AttemptTimeout time.Duration

	// InitialDelay is the backoff delay after the first failed attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// BackoffMultiplier is the per-attempt backoff growth factor.
	BackoffMultiplier float64

	// Debounce is how long SetItem coalesces rapid writes to one key
	// before sending.
	Debounce time.Duration

	// CacheTTL is how long read results stay fresh.
	CacheTTL time.Duration

	// QueueMaxAge is how long a queued offline write stays replayable.
	QueueMaxAge time.Duration
}

// DefaultOptions returns Options with the documented defaults.
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: monitor.DefaultHeartbeatInterval,
		HeartbeatTimeout:  monitor.DefaultHeartbeatTimeout,
		MaxFailedPings:    monitor.DefaultMaxFailedPings,
		AutoRecover:       true,
		MaxAttempts:       request.DefaultMaxAttempts,
		AttemptTimeout:    request.DefaultAttemptTimeout,
		InitialDelay:      retry.DefaultInitialDelay,
		MaxDelay:          retry.DefaultMaxDelay,
		BackoffMultiplier: retry.DefaultMultiplier,
		Debounce:          100 * time.Millisecond,
		CacheTTL:          cache.DefaultTTL,
		QueueMaxAge:       queue.DefaultMaxAge,
	}
}

// ApplyDefaults fills zero fields from DefaultOptions. AutoRecover is
// boolean and cannot be distinguished from "unset"; it is only
// defaulted by DefaultOptions and the YAML loader's pointer form.
func (o *Options) ApplyDefaults() {
	def := DefaultOptions()
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = def.HeartbeatInterval
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if o.MaxFailedPings <= 0 {
		o.MaxFailedPings = def.MaxFailedPings
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = def.AttemptTimeout
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = def.InitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = def.BackoffMultiplier
	}
	if o.Debounce <= 0 {
		o.Debounce = def.Debounce
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = def.CacheTTL
	}
	if o.QueueMaxAge <= 0 {
		o.QueueMaxAge = def.QueueMaxAge
	}
}

// Validate checks option consistency.
func (o *Options) Validate() error {
	if o.HeartbeatInterval <= 0 || o.HeartbeatTimeout <= 0 {
		return ErrInvalidOptions
	}
	if o.HeartbeatTimeout > o.HeartbeatInterval {
		return ErrInvalidOptions
	}
	if o.MaxFailedPings <= 0 || o.MaxAttempts <= 0 {
		return ErrInvalidOptions
	}
	if o.InitialDelay <= 0 || o.MaxDelay < o.InitialDelay {
		return ErrInvalidOptions
	}
	if o.BackoffMultiplier < 1 {
		return ErrInvalidOptions
	}
	if o.AttemptTimeout <= 0 || o.Debounce < 0 || o.CacheTTL <= 0 || o.QueueMaxAge <= 0 {
		return ErrInvalidOptions
	}
	return nil
}

// MonitorConfig derives the heartbeat monitor configuration.
func (o *Options) MonitorConfig() monitor.Config {
	return monitor.Config{
		HeartbeatInterval: o.HeartbeatInterval,
		HeartbeatTimeout:  o.HeartbeatTimeout,
		MaxFailedPings:    o.MaxFailedPings,
		AutoRecover:       o.AutoRecover,
	}
}

// TrackerConfig derives the request tracker configuration.
func (o *Options) TrackerConfig() request.Config {
	return request.Config{
		MaxAttempts:    o.MaxAttempts,
		AttemptTimeout: o.AttemptTimeout,
	}
}

// RetryConfig derives the backoff policy configuration.
func (o *Options) RetryConfig() retry.Config {
	return retry.Config{
		Initial:    o.InitialDelay,
		Max:        o.MaxDelay,
		Multiplier: o.BackoffMultiplier,
	}
}
