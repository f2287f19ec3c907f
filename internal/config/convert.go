package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/lossyudp/internal/protocol"
	"github.com/danmuck/lossyudp/internal/receiver"
	"github.com/danmuck/lossyudp/internal/relay"
	"github.com/danmuck/lossyudp/internal/sender"
)

// LogAddr is the event sink address, or "" when log_port is 0.
func (c SenderConfig) LogAddr() string {
	if c.LogPort == 0 {
		return ""
	}
	return HostPort(c.LogHost, c.LogPort)
}

func (c SenderConfig) TargetAddr() string { return HostPort(c.TargetIP, c.TargetPort) }

// Sender converts a validated file config into the runtime form.
func (c SenderConfig) Sender() (sender.Config, error) {
	out := sender.DefaultConfig()
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil {
		return sender.Config{}, fmt.Errorf("%w: sender timeout: %v", ErrInvalidConfig, err)
	}
	codec, err := protocol.CodecByName(c.Codec)
	if err != nil {
		return sender.Config{}, err
	}
	out.Timeout = d
	out.MaxRetries = c.MaxRetries
	out.Codec = codec
	return out, nil
}

func (c ReceiverConfig) LogAddr() string {
	if c.LogPort == 0 {
		return ""
	}
	return HostPort(c.LogHost, c.LogPort)
}

func (c ReceiverConfig) ListenAddr() string { return HostPort(c.ListenIP, c.ListenPort) }

func (c ReceiverConfig) Receiver() (receiver.Config, error) {
	out := receiver.DefaultConfig()
	codec, err := protocol.CodecByName(c.Codec)
	if err != nil {
		return receiver.Config{}, err
	}
	out.Codec = codec
	out.DedupWindow = c.DedupWindow
	return out, nil
}

// LogListenAddr is where the relay accepts lifecycle events from every interface.
func (c RelayConfig) LogListenAddr() string { return HostPort("0.0.0.0", c.LogPort) }

func (c RelayConfig) Relay() relay.Config {
	out := relay.DefaultConfig()
	out.ListenAddr = HostPort(c.ListenIP, c.ListenPort)
	out.UpstreamAddr = HostPort(c.TargetIP, c.TargetPort)
	out.ValidateUpstream = c.ValidateUpstream
	out.Client = c.Client.Impairment()
	out.Server = c.Server.Impairment()
	return out
}

func (c ImpairmentConfig) Impairment() relay.Impairment {
	return relay.Impairment{
		DropProbability:  c.Drop,
		DelayProbability: c.Delay,
		DelayMin:         time.Duration(c.DelayMinMS) * time.Millisecond,
		DelayMax:         time.Duration(c.DelayMaxMS) * time.Millisecond,
		Seed:             c.Seed,
	}
}
