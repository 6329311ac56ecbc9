// Package monitor implements heartbeat-based liveness detection for
// the storage bridge.
//
// The monitor periodically sends pings carrying their own send time
// and expects the peer to echo that time back. It owns the
// ConnectionState the rest of the bridge keys off of:
//
//	CONNECTING   probe cycle underway, peer not yet confirmed
//	CONNECTED    a recent probe was answered
//	DISCONNECTED the configured miss budget was exhausted
//
// Misses are evaluated on ping ticks, not on separate timeout timers:
// with interval I and miss budget N, a peer that stops answering is
// declared unreachable after N full cycles (N*I), which keeps the
// probe and detection cadence aligned.
//
// Latency is tracked as an exponentially weighted moving average
// (alpha 0.3) of round-trip times; each sample is folded in and
// discarded.
package monitor
