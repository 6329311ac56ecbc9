package host

import (
	"sync"

	"github.com/framestore-protocol/framestore-go/pkg/fallback"
	"github.com/framestore-protocol/framestore-go/pkg/log"
	"github.com/framestore-protocol/framestore-go/pkg/transport"
	"github.com/framestore-protocol/framestore-go/pkg/wire"
)

// Responder is the host side of the channel. It answers pings with
// pongs and serves read and write requests from its own store.
//
// The responder is stateless beyond the store: it answers whatever
// arrives and never initiates traffic, so a lossy channel only ever
// costs the requester a retry.
type Responder struct {
	ch     transport.Channel
	store  *fallback.Guarded
	logger log.Logger

	mu      sync.Mutex
	stopped bool
}

// New creates a responder serving requests from store over ch and
// attaches it as the channel's receive handler.
func New(ch transport.Channel, store fallback.Store, logger log.Logger) *Responder {
	r := &Responder{
		ch:     ch,
		store:  fallback.NewGuarded(store, log.OrNoop(logger)),
		logger: log.OrNoop(logger),
	}
	ch.OnReceive(r.handle)
	return r
}

// Stop detaches the responder. Frames arriving afterwards are dropped.
func (r *Responder) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

func (r *Responder) handle(data []byte) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	msg, err := wire.Decode(data)
	if err != nil {
		r.logger.Log(log.Event{
			Component: log.ComponentHost,
			Category:  log.CategoryDrop,
			Message:   "undecodable frame dropped",
			Err:       err,
		})
		return
	}

	switch msg.Kind {
	case wire.KindPing:
		r.reply(wire.NewPong(msg))
	case wire.KindReadRequest:
		value, found := r.store.Get(msg.Key)
		r.reply(wire.NewReadResponse(msg.RequestID, msg.Key, value, found))
	case wire.KindWriteRequest:
		r.store.Set(msg.Key, msg.Value)
		r.reply(wire.NewWriteAck(msg.RequestID))
	default:
		// Pongs, responses and acks are requester-side traffic.
		r.logger.Log(log.Event{
			Component: log.ComponentHost,
			Category:  log.CategoryDrop,
			Message:   "unexpected " + msg.Kind.String() + " dropped",
			RequestID: msg.RequestID,
		})
	}
}

func (r *Responder) reply(msg *wire.Message) {
	data, err := wire.Encode(msg)
	if err != nil {
		r.logger.Log(log.Event{
			Component: log.ComponentHost,
			Category:  log.CategoryError,
			Message:   "encoding reply",
			RequestID: msg.RequestID,
			Err:       err,
		})
		return
	}
	if err := r.ch.Send(data); err != nil {
		r.logger.Log(log.Event{
			Component: log.ComponentHost,
			Category:  log.CategoryError,
			Message:   "sending reply",
			RequestID: msg.RequestID,
			Err:       err,
		})
	}
}
