// Package metrics tallies lifecycle events arriving on the log side channel.
package metrics

import (
	"bufio"
	"errors"
	"io"
	"sync"

	"github.com/danmuck/lossyudp/internal/observability"
	"github.com/danmuck/lossyudp/internal/protocol"
)

// Counter names one of the four tallies.
type Counter int

const (
	CounterSent Counter = iota
	CounterReceived
	CounterAckSent
	CounterAckReceived
)

// Snapshot is an immutable copy of the counters.
type Snapshot struct {
	Sent        uint64 `json:"sent"`
	Received    uint64 `json:"received"`
	AckSent     uint64 `json:"ack_sent"`
	AckReceived uint64 `json:"ack_received"`
}

// Classify maps a (component, event) pair to its counter.
func Classify(component, event string) (Counter, bool) {
	switch {
	case component == protocol.ComponentClient && event == protocol.EventSend:
		return CounterSent, true
	case component == protocol.ComponentClient && event == protocol.EventAckRecv:
		return CounterAckReceived, true
	case component == protocol.ComponentServer && event == protocol.EventRecv:
		return CounterReceived, true
	case component == protocol.ComponentServer && event == protocol.EventAckSend:
		return CounterAckSent, true
	default:
		return 0, false
	}
}

// Aggregator owns the counters. Counters only grow.
type Aggregator struct {
	mu      sync.Mutex
	counts  Snapshot
	ignored uint64
	notify  []func(Snapshot)
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// OnUpdate registers fn to run after each recognized event, outside the lock.
func (a *Aggregator) OnUpdate(fn func(Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notify = append(a.notify, fn)
}

// Apply counts ev if its pair is recognized.
func (a *Aggregator) Apply(ev protocol.LogEvent) bool {
	counter, ok := Classify(ev.Component, ev.Event)
	a.mu.Lock()
	if !ok {
		a.ignored++
		a.mu.Unlock()
		observability.RecordIgnoredLine()
		return false
	}
	switch counter {
	case CounterSent:
		a.counts.Sent++
	case CounterReceived:
		a.counts.Received++
	case CounterAckSent:
		a.counts.AckSent++
	case CounterAckReceived:
		a.counts.AckReceived++
	}
	snap := a.counts
	notify := a.notify
	a.mu.Unlock()

	observability.RecordLifecycleEvent(ev.Component, ev.Event)
	for _, fn := range notify {
		fn(snap)
	}
	return true
}

// ApplyLine parses and counts one line; malformed lines are ignored.
func (a *Aggregator) ApplyLine(line []byte) bool {
	ev, err := protocol.DecodeLine(line)
	if err != nil {
		a.mu.Lock()
		a.ignored++
		a.mu.Unlock()
		observability.RecordIgnoredLine()
		return false
	}
	return a.Apply(ev)
}

// Consume applies every line from r until EOF. A trailing line without a
// newline is still applied.
func (a *Aggregator) Consume(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			a.ApplyLine(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

// Ignored counts malformed or unrecognized lines.
func (a *Aggregator) Ignored() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ignored
}
