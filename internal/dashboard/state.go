package dashboard

import (
	"github.com/danmuck/lossyudp/internal/metrics"
	"github.com/danmuck/lossyudp/internal/relay"
)

// State is the combined read-only view published to viewers.
type State struct {
	Metrics      metrics.Snapshot `json:"metrics"`
	Ignored      uint64           `json:"ignored_lines"`
	LogProducers int64            `json:"log_producers"`
	Relay        relay.Snapshot   `json:"relay"`
}

// StateFunc returns the current State. It is called from several goroutines.
type StateFunc func() State

// Collect builds a StateFunc over the live components. listener may be nil.
func Collect(agg *metrics.Aggregator, listener *metrics.Listener, r *relay.Relay) StateFunc {
	return func() State {
		st := State{
			Metrics: agg.Snapshot(),
			Ignored: agg.Ignored(),
			Relay:   r.Snapshot(),
		}
		if listener != nil {
			st.LogProducers = listener.ActiveConnections()
		}
		return st
	}
}
