package transport

import "errors"

// Channel errors.
var (
	// ErrChannelClosed is returned by Send after the channel is closed.
	ErrChannelClosed = errors.New("channel closed")

	// ErrNoPeer is returned by Send when no peer is attached.
	ErrNoPeer = errors.New("no peer attached")
)

// Channel is the asynchronous cross-context messaging primitive the
// storage bridge runs over. Implementations may silently drop or delay
// messages; Send returning nil is not a delivery guarantee.
//
// A synchronous error from Send means the channel is unusable right now
// (closed, no peer). Callers treat that the same as total silence.
type Channel interface {
	// Send transmits an encoded message to the peer, best effort.
	Send(data []byte) error

	// OnReceive registers the handler for inbound messages. Handlers
	// are invoked sequentially in arrival order. Registering replaces
	// any previous handler; nil detaches it.
	OnReceive(fn func(data []byte))

	// Close tears down the channel. Subsequent Sends fail with
	// ErrChannelClosed. Safe to call repeatedly.
	Close() error
}
