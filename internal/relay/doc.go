// Package relay is a UDP impairment relay between one client and one upstream server.
//
// Each direction runs in its own goroutine with its own seeded RNG and drops
// or delays datagrams independently. A delayed datagram holds up only its own
// direction. Server replies are routed to the most recently seen client
// endpoint; a new client takes over the return path.
package relay
