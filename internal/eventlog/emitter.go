package eventlog

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/protocol"
)

// DefaultBuffer is the number of events queued before Emit starts dropping.
const DefaultBuffer = 1000

// Sink accepts lifecycle events. Implementations must not block.
type Sink interface {
	Emit(ev protocol.LogEvent) bool
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Emit(protocol.LogEvent) bool { return false }

// Config controls the TCP sink connection.
type Config struct {
	Addr         string
	Buffer       int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Backoff      BackoffConfig
}

func DefaultConfig(addr string) Config {
	return Config{
		Addr:         addr,
		Buffer:       DefaultBuffer,
		DialTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig(c.Addr)
	if c.Buffer <= 0 {
		c.Buffer = def.Buffer
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}

// Emitter buffers events on a bounded channel and writes them from one goroutine.
type Emitter struct {
	cfg  Config
	ch   chan protocol.LogEvent
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewEmitter starts the writer goroutine. The sink is dialed lazily so a
// missing aggregator never delays startup.
func NewEmitter(cfg Config) *Emitter {
	cfg = cfg.withDefaults()
	e := &Emitter{
		cfg:  cfg,
		ch:   make(chan protocol.LogEvent, cfg.Buffer),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues ev. It returns false when the event was dropped.
func (e *Emitter) Emit(ev protocol.LogEvent) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.dropped.Add(1)
		return false
	}
	select {
	case e.ch <- ev:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

func (e *Emitter) Written() uint64 { return e.written.Load() }
func (e *Emitter) Dropped() uint64 { return e.dropped.Load() }

// Close stops accepting events and waits up to timeout for the queue to drain.
func (e *Emitter) Close(timeout time.Duration) {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
	e.mu.Unlock()

	if timeout <= 0 {
		<-e.done
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.done:
	case <-timer.C:
		logs.Warnf("eventlog.Emitter.Close drain timeout addr=%q", e.cfg.Addr)
	}
}

func (e *Emitter) run() {
	defer close(e.done)

	var (
		conn     net.Conn
		attempt  int
		nextDial time.Time
		addr     = strings.TrimSpace(e.cfg.Addr)
	)
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for ev := range e.ch {
		if addr == "" {
			e.dropped.Add(1)
			continue
		}
		if conn == nil {
			if time.Now().Before(nextDial) {
				e.dropped.Add(1)
				continue
			}
			c, err := net.DialTimeout("tcp", addr, e.cfg.DialTimeout)
			if err != nil {
				attempt++
				nextDial = time.Now().Add(NextBackoffDelay(e.cfg.Backoff, attempt, nil))
				if attempt == 1 {
					logs.Warnf("eventlog.Emitter sink unavailable addr=%q err=%v", addr, err)
				}
				e.dropped.Add(1)
				continue
			}
			conn = c
			attempt = 0
			logs.Debugf("eventlog.Emitter connected addr=%q", addr)
		}

		line, err := ev.EncodeLine()
		if err != nil {
			e.dropped.Add(1)
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteTimeout))
		if _, err := conn.Write(line); err != nil {
			logs.Debugf("eventlog.Emitter write failed addr=%q err=%v", addr, err)
			_ = conn.Close()
			conn = nil
			e.dropped.Add(1)
			continue
		}
		e.written.Add(1)
	}
}
