// Package protocol owns the datagram and side-channel wire contracts.
//
// Ownership boundary:
// - Message/Ack datagram shapes and codecs
// - LogEvent side-channel records (one JSON object per line)
// - component/event vocabulary shared by emitters and the aggregator
package protocol
