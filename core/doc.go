// Package core is the runtime shared by every petrel endpoint family: the
// classified error taxonomy and its pure classifier, the jittered
// exponential retry controller, the streaming fold (Accumulator, Result,
// OutputItem), the session runner that turns decoded frames into Result
// snapshots, and the telemetry hooks.
//
// One streaming call owns one Accumulator and one ResultStream; nothing in
// this package holds global mutable state. Cancellation is cooperative and
// flows through context.Context at every suspension point: before each
// frame read and during each backoff wait.
package core
