// Package wire defines the message encoding for the storage bridge.
//
// All traffic between the widget context and its host is a single
// tagged record, Message, whose Kind field forms a closed union:
//   - ping / pong: liveness probes (monitor package)
//   - readRequest / readResponse: key/value reads
//   - writeRequest / writeAck: key/value writes
//
// Messages are encoded as CBOR maps with integer keys for compactness
// and deterministic output. Receivers dispatch on Kind exhaustively;
// frames that fail to decode or validate are dropped at the boundary,
// never surfaced to callers.
//
// # Wire Format
//
//	┌────────────────────────────────┐
//	│      CBOR Message (map)        │
//	├────────────────────────────────┤
//	│  Asynchronous message channel  │
//	│  (no delivery/order guarantee) │
//	└────────────────────────────────┘
//
// Request identifiers are opaque strings generated by the requesting
// side, unique per attempt. A reply that names an unknown request id is
// stale by definition and is silently discarded.
package wire
