// Package eventlog ships lifecycle events to the metrics side channel.
//
// Emission is strictly best effort: Emit never blocks and never reports
// failure to the protocol path. Records travel as newline-delimited JSON
// over one TCP connection owned by a background goroutine.
package eventlog
