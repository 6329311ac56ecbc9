// Package fallback provides the same-context persistent storage the
// bridge degrades to when the channel is slow, silent, or absent.
//
// Three implementations cover the deployment spectrum:
//   - MemoryStore: no durability, for tests and ephemeral contexts
//   - FileStore:   one JSON file, suits the widget's few small keys
//   - BoltStore:   BoltDB-backed, for long-lived host-side processes
//
// The invariant the adapter relies on: the fallback store always holds
// the most recently requested value for every key the adapter has
// written, regardless of channel health. To keep that invariant
// unconditional, all bridge-internal access goes through Guarded,
// which converts storage failures into absent reads and no-op writes
// instead of propagating them.
package fallback
