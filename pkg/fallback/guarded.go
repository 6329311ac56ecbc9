package fallback

import (
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/log"
)

// Guarded wraps a Store and absorbs its failures. The bridge promises
// its callers that no storage error ever propagates: a failing read
// reports an absent value, a failing write becomes a silent no-op.
// Every absorbed failure is emitted as a diagnostic event.
type Guarded struct {
	store  Store
	logger log.Logger
}

// NewGuarded wraps store. A nil logger disables diagnostics.
func NewGuarded(store Store, logger log.Logger) *Guarded {
	return &Guarded{store: store, logger: log.OrNoop(logger)}
}

// Get returns the stored value, or an absent value if the underlying
// store fails.
func (g *Guarded) Get(key string) (string, bool) {
	v, ok, err := g.store.Get(key)
	if err != nil {
		g.report("fallback read failed", key, err)
		return "", false
	}
	return v, ok
}

// Set stores value under key, or does nothing if the underlying store
// fails.
func (g *Guarded) Set(key, value string) {
	if err := g.store.Set(key, value); err != nil {
		g.report("fallback write failed", key, err)
	}
}

// Remove deletes key, or does nothing if the underlying store fails.
func (g *Guarded) Remove(key string) {
	if err := g.store.Remove(key); err != nil {
		g.report("fallback remove failed", key, err)
	}
}

func (g *Guarded) report(msg, key string, err error) {
	g.logger.Log(log.Event{
		Timestamp: time.Now(),
		Component: log.ComponentFallback,
		Category:  log.CategoryError,
		Message:   msg,
		Key:       key,
		Err:       err,
	})
}
