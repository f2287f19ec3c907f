// Package sender implements the stop-and-wait half of the reliability protocol.
//
// Exactly one message is in flight. Each message gets the next sequence id,
// is retransmitted byte-for-byte after every timeout, and is abandoned after
// the configured number of retransmissions.
package sender
