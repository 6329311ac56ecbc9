package wire

import (
	"fmt"
	"time"
)

// CBOR map keys for message encoding.
// All bridge messages use integer keys for efficiency.
const (
	KeyKind      = 1
	KeySentAt    = 2
	KeyRequestID = 3
	KeyStorage   = 4 // storage key name
	KeyValue     = 5
	KeyHasValue  = 6
)

// Kind identifies the message type. The set of kinds is closed:
// every dispatcher must handle all of them exhaustively and treat
// anything else as malformed.
type Kind uint8

const (
	// KindPing is a liveness probe carrying its own send time.
	KindPing Kind = 1

	// KindPong is the reply to a ping, echoing the ping's send time.
	KindPong Kind = 2

	// KindReadRequest asks the peer for the value stored under a key.
	KindReadRequest Kind = 3

	// KindReadResponse carries the value (or its absence) for a read.
	KindReadResponse Kind = 4

	// KindWriteRequest asks the peer to store a value under a key.
	KindWriteRequest Kind = 5

	// KindWriteAck confirms a write request was applied.
	KindWriteAck Kind = 6
)

// IsValid returns true for a known message kind.
func (k Kind) IsValid() bool {
	return k >= KindPing && k <= KindWriteAck
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	case KindReadRequest:
		return "readRequest"
	case KindReadResponse:
		return "readResponse"
	case KindWriteRequest:
		return "writeRequest"
	case KindWriteAck:
		return "writeAck"
	default:
		return "unknown"
	}
}

// Message is the single wire record exchanged between the two contexts.
// Which fields are meaningful depends on Kind:
//
//	ping:          {1: kind, 2: sentAt}
//	pong:          {1: kind, 2: sentAt}           // echoed from the ping
//	readRequest:   {1: kind, 3: requestId, 4: key}
//	readResponse:  {1: kind, 3: requestId, 4: key, 5: value, 6: hasValue}
//	writeRequest:  {1: kind, 3: requestId, 4: key, 5: value}
//	writeAck:      {1: kind, 3: requestId}
//
// SentAt is unix nanoseconds so round-trip times stay sub-millisecond
// accurate. An absent key on a read response is signalled by
// HasValue=false, never by an error.
type Message struct {
	Kind      Kind   `cbor:"1,keyasint"`
	SentAt    int64  `cbor:"2,keyasint,omitempty"`
	RequestID string `cbor:"3,keyasint,omitempty"`
	Key       string `cbor:"4,keyasint,omitempty"`
	Value     string `cbor:"5,keyasint,omitempty"`
	HasValue  bool   `cbor:"6,keyasint,omitempty"`
}

// NewPing creates a liveness probe stamped with the given send time.
func NewPing(sentAt time.Time) *Message {
	return &Message{Kind: KindPing, SentAt: sentAt.UnixNano()}
}

// NewPong creates the reply to a ping, echoing its send time verbatim.
func NewPong(ping *Message) *Message {
	return &Message{Kind: KindPong, SentAt: ping.SentAt}
}

// NewReadRequest creates a read request for key.
func NewReadRequest(requestID, key string) *Message {
	return &Message{Kind: KindReadRequest, RequestID: requestID, Key: key}
}

// NewReadResponse creates the reply to a read request.
// found=false reports an absent key.
func NewReadResponse(requestID, key, value string, found bool) *Message {
	return &Message{
		Kind:      KindReadResponse,
		RequestID: requestID,
		Key:       key,
		Value:     value,
		HasValue:  found,
	}
}

// NewWriteRequest creates a write request for key=value.
func NewWriteRequest(requestID, key, value string) *Message {
	return &Message{
		Kind:      KindWriteRequest,
		RequestID: requestID,
		Key:       key,
		Value:     value,
		HasValue:  true,
	}
}

// NewWriteAck creates the acknowledgement for a write request.
func NewWriteAck(requestID string) *Message {
	return &Message{Kind: KindWriteAck, RequestID: requestID}
}

// Validate checks that the message carries the fields its kind requires.
func (m *Message) Validate() error {
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid message kind: %d", m.Kind)
	}
	switch m.Kind {
	case KindPing, KindPong:
		if m.SentAt == 0 {
			return fmt.Errorf("%s without send time", m.Kind)
		}
	case KindReadRequest, KindWriteRequest:
		if m.RequestID == "" {
			return fmt.Errorf("%s without request id", m.Kind)
		}
		if m.Key == "" {
			return fmt.Errorf("%s without key", m.Kind)
		}
	case KindReadResponse, KindWriteAck:
		if m.RequestID == "" {
			return fmt.Errorf("%s without request id", m.Kind)
		}
	}
	return nil
}

// IsReply returns true for message kinds that answer an earlier request.
func (m *Message) IsReply() bool {
	return m.Kind == KindReadResponse || m.Kind == KindWriteAck
}
