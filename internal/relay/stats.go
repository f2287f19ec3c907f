package relay

import (
	"sync/atomic"

	"github.com/danmuck/lossyudp/internal/observability"
)

// Direction names one forwarding path.
type Direction string

const (
	ClientToServer Direction = "client_to_server"
	ServerToClient Direction = "server_to_client"
)

const (
	outcomeReceived  = "received"
	outcomeDropped   = "dropped"
	outcomeDelayed   = "delayed"
	outcomeForwarded = "forwarded"
	outcomeRejected  = "rejected"
	outcomeNoClient  = "no_client"
	outcomeFailed    = "send_failed"
)

// DirectionStats is a point-in-time copy of one direction's counters.
type DirectionStats struct {
	Received   uint64 `json:"received"`
	Dropped    uint64 `json:"dropped"`
	Delayed    uint64 `json:"delayed"`
	Forwarded  uint64 `json:"forwarded"`
	Rejected   uint64 `json:"rejected"`
	NoClient   uint64 `json:"no_client"`
	SendFailed uint64 `json:"send_failed"`
}

type directionCounters struct {
	dir        Direction
	received   atomic.Uint64
	dropped    atomic.Uint64
	delayed    atomic.Uint64
	forwarded  atomic.Uint64
	rejected   atomic.Uint64
	noClient   atomic.Uint64
	sendFailed atomic.Uint64
}

func (c *directionCounters) inc(outcome string) {
	switch outcome {
	case outcomeReceived:
		c.received.Add(1)
	case outcomeDropped:
		c.dropped.Add(1)
	case outcomeDelayed:
		c.delayed.Add(1)
	case outcomeForwarded:
		c.forwarded.Add(1)
	case outcomeRejected:
		c.rejected.Add(1)
	case outcomeNoClient:
		c.noClient.Add(1)
	case outcomeFailed:
		c.sendFailed.Add(1)
	}
	observability.RecordRelayPacket(string(c.dir), outcome)
}

func (c *directionCounters) snapshot() DirectionStats {
	return DirectionStats{
		Received:   c.received.Load(),
		Dropped:    c.dropped.Load(),
		Delayed:    c.delayed.Load(),
		Forwarded:  c.forwarded.Load(),
		Rejected:   c.rejected.Load(),
		NoClient:   c.noClient.Load(),
		SendFailed: c.sendFailed.Load(),
	}
}
