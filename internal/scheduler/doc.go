// Package scheduler drives the document-extract collaborator across many
// specs concurrently.
//
// The scheduler maintains a sliding-window pool: a cursor into the work list
// and a count of in-flight extraction units. Whenever a unit completes, the
// next pending spec is launched immediately, so fast and slow specs are
// interleaved instead of the whole pool waiting for the slowest item of a
// fixed batch.
//
// Each unit runs isolated behind its own error boundary with an independent
// hard timeout: a panic, network failure, or hang in one extraction is
// converted into an errored result for that spec only and never aborts the
// batch. All shared state (the in-flight count and results list) is mutated
// only in the scheduler loop, so no locking is needed there. Units never
// touch the network directly; every outbound fetch is proxied through a
// single scheduler-owned service loop, which keeps one shared disk cache and
// one point of traffic control under any level of parallelism.
package scheduler
