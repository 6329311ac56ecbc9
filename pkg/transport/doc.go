// Package transport defines the messaging channel the storage bridge
// runs over and provides an in-process implementation of it.
//
// The Channel interface is deliberately minimal: a best-effort Send and
// a sequential inbound handler. Nothing above this layer may assume
// delivery, ordering across restarts, or timeliness; every reliability
// property the bridge offers is built on top in the monitor, request,
// and queue packages.
//
// # Origin Targeting
//
// Outbound messages are addressed to a specific, configured peer
// origin. A message whose target origin does not match the receiving
// side's origin is discarded in transit without error. AnyOrigin ("*")
// relaxes the check for test harnesses only.
//
// # Fault Injection
//
// The Bridge implementation supports artificial latency, probabilistic
// drops, and total silence, so the reliability layers above it can be
// exercised against a misbehaving channel without a real host page.
package transport
