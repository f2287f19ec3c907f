package relay

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingAddr = errors.New("relay: missing address")

const (
	DefaultRecvBuffer = 2048
	DefaultClientSeed = 42
	DefaultServerSeed = 43
)

// Config binds one client-facing socket and one server-facing socket.
type Config struct {
	// ListenAddr is where clients send.
	ListenAddr string
	// UpstreamAddr is the fixed server all client traffic goes to.
	UpstreamAddr string
	// UpstreamBind is the local address of the server-facing socket.
	UpstreamBind string
	Client       Impairment
	Server       Impairment
	RecvBuffer   int
	// ValidateUpstream discards server-side datagrams not sent by UpstreamAddr.
	ValidateUpstream bool
}

func DefaultConfig() Config {
	return Config{
		UpstreamBind:     "0.0.0.0:0",
		Client:           Impairment{Seed: DefaultClientSeed},
		Server:           Impairment{Seed: DefaultServerSeed},
		RecvBuffer:       DefaultRecvBuffer,
		ValidateUpstream: true,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen", ErrMissingAddr)
	}
	if strings.TrimSpace(c.UpstreamAddr) == "" {
		return fmt.Errorf("%w: upstream", ErrMissingAddr)
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client impairment: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server impairment: %w", err)
	}
	return nil
}
