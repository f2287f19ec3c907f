package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Components that emit lifecycle events.
const (
	ComponentClient = "client"
	ComponentServer = "server"
)

// Lifecycle event kinds.
const (
	EventSend    = "send"
	EventResend  = "resend"
	EventAckRecv = "ack_recv"
	EventRecv    = "recv"
	EventAckSend = "ack_send"
)

// LogEvent is one side-channel record, encoded as a single JSON line.
type LogEvent struct {
	TS        float64 `json:"ts"`
	Component string  `json:"component"`
	Event     string  `json:"event"`
	Seq       *uint64 `json:"seq"`
}

// NewLogEvent stamps an event with the current wall clock.
func NewLogEvent(component, event string, seq uint64) LogEvent {
	return LogEvent{
		TS:        Timestamp(time.Now()),
		Component: component,
		Event:     event,
		Seq:       &seq,
	}
}

// Timestamp converts t to float seconds since the Unix epoch.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// EncodeLine returns the event as JSON terminated by '\n'.
func (e LogEvent) EncodeLine() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

// DecodeLine parses one side-channel line. ts, component and event are required.
func DecodeLine(line []byte) (LogEvent, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return LogEvent{}, ErrMalformedEvent
	}
	var raw struct {
		TS        *float64 `json:"ts"`
		Component *string  `json:"component"`
		Event     *string  `json:"event"`
		Seq       *uint64  `json:"seq"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.TS == nil || raw.Component == nil || raw.Event == nil {
		return LogEvent{}, ErrMalformedEvent
	}
	return LogEvent{
		TS:        *raw.TS,
		Component: *raw.Component,
		Event:     *raw.Event,
		Seq:       raw.Seq,
	}, nil
}
