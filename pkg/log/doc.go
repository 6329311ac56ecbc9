// Package log provides diagnostic event capture for the storage bridge.
//
// The bridge never surfaces transport or storage failures to its
// callers; everything degrades to the fallback store. This package is
// the one place those swallowed conditions become observable: each
// component emits Events through an injected Logger, and applications
// choose a sink (NoopLogger by default, SlogAdapter for development,
// or their own implementation).
package log
