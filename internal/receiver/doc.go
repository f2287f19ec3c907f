// Package receiver implements the acknowledging half of the reliability protocol.
//
// Every decodable message is acknowledged, duplicates included; only the
// first copy of a sequence id reaches the payload handler. The serve loop is
// sequential, matching a stop-and-wait peer.
package receiver
