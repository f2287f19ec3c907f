package sender

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/lossyudp/internal/protocol"
)

var (
	ErrInvalidTimeout    = errors.New("sender: timeout must be positive")
	ErrInvalidMaxRetries = errors.New("sender: max retries must not be negative")
)

// DefaultRecvBuffer bounds ack datagrams read by the sender.
const DefaultRecvBuffer = 2048

// Config defines per-message retry behavior.
type Config struct {
	// Timeout is the full wait applied to every attempt.
	Timeout time.Duration
	// MaxRetries is the number of retransmissions after the first send.
	MaxRetries int
	Codec      protocol.Codec
	RecvBuffer int
	// OnResend is called after each retransmission with the 1-based retry count.
	OnResend func(seq uint64, retry int)
}

func DefaultConfig() Config {
	return Config{
		Timeout:    time.Second,
		MaxRetries: 3,
		Codec:      protocol.JSONCodec{},
		RecvBuffer: DefaultRecvBuffer,
	}
}

func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRetries, c.MaxRetries)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Codec == nil {
		c.Codec = protocol.JSONCodec{}
	}
	if c.RecvBuffer <= 0 {
		c.RecvBuffer = DefaultRecvBuffer
	}
	return c
}
