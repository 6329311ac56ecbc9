// Package adapter composes the bridge layers into the storage surface
// the widget uses: cached reads with remote round trips, debounced
// coalesced writes, offline queueing with replay on reconnect, and a
// synchronously mirrored fallback store. GetItem and SetItem never
// return errors; every failure mode degrades to the fallback store.
package adapter
