// Package request correlates outbound storage requests with their
// eventual replies over the best-effort channel.
//
// One operation may span several attempts. Every attempt carries a
// fresh opaque request identifier generated on this side; replies are
// matched solely by that identifier. Identifiers from timed-out
// attempts are abandoned, so duplicated, reordered, or very late
// replies can at worst be dropped, never mismatched.
//
// The tracker deliberately has no error return on its public calls:
// transport failure is an expected condition, reported as a
// delivered/acked flag so the storage adapter can degrade to the
// fallback store without error-handling branches.
package request
