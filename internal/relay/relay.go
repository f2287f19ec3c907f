package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/observability"
	"github.com/google/uuid"
)

// Snapshot is a read-only view of relay state for dashboards.
type Snapshot struct {
	ID             string         `json:"id"`
	Uptime         time.Duration  `json:"uptime"`
	ListenAddr     string         `json:"listen_addr"`
	UpstreamAddr   string         `json:"upstream_addr"`
	LastClient     string         `json:"last_client,omitempty"`
	ClientChanges  uint64         `json:"client_changes"`
	ClientToServer DirectionStats `json:"client_to_server"`
	ServerToClient DirectionStats `json:"server_to_client"`
}

// Relay forwards datagrams between one client and one upstream server.
type Relay struct {
	cfg        Config
	id         string
	startedAt  time.Time
	clientConn *net.UDPConn
	serverConn *net.UDPConn
	upstream   netip.AddrPort
	slot       ClientSlot

	c2s directionCounters
	s2c directionCounters

	closeOnce sync.Once
}

// direction is the per-goroutine state of one forwarding path.
type direction struct {
	name   Direction
	in     *net.UDPConn
	out    *net.UDPConn
	policy *Policy
	stats  *directionCounters
	// accept inspects the source before the policy draw.
	accept func(src netip.AddrPort) bool
	// target resolves the destination after any delay.
	target func() (netip.AddrPort, bool)
}

// New validates cfg and binds both sockets. Bind failures are returned so the
// process can exit before steady state.
func New(cfg Config) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RecvBuffer <= 0 {
		cfg.RecvBuffer = DefaultRecvBuffer
	}
	if strings.TrimSpace(cfg.UpstreamBind) == "" {
		cfg.UpstreamBind = "0.0.0.0:0"
	}

	upAddr, err := net.ResolveUDPAddr("udp", strings.TrimSpace(cfg.UpstreamAddr))
	if err != nil {
		return nil, fmt.Errorf("relay: resolve upstream %q: %w", cfg.UpstreamAddr, err)
	}
	clientConn, err := listenUDP(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("relay: bind client side: %w", err)
	}
	serverConn, err := listenUDP(cfg.UpstreamBind)
	if err != nil {
		_ = clientConn.Close()
		return nil, fmt.Errorf("relay: bind server side: %w", err)
	}

	r := &Relay{
		cfg:        cfg,
		id:         uuid.NewString(),
		startedAt:  time.Now(),
		clientConn: clientConn,
		serverConn: serverConn,
		upstream:   unmap(upAddr.AddrPort()),
	}
	r.c2s.dir = ClientToServer
	r.s2c.dir = ServerToClient
	return r, nil
}

func listenUDP(addr string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", strings.TrimSpace(addr))
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", laddr)
}

func unmap(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// ClientAddr is the local address clients send to.
func (r *Relay) ClientAddr() net.Addr { return r.clientConn.LocalAddr() }

// ServerAddr is the local address the upstream server sees.
func (r *Relay) ServerAddr() net.Addr { return r.serverConn.LocalAddr() }

func (r *Relay) ID() string { return r.id }

// Run forwards in both directions until ctx is done. A datagram already in
// its delay sleep is still forwarded before Run returns.
func (r *Relay) Run(ctx context.Context) error {
	defer r.Close()

	stop := context.AfterFunc(ctx, func() {
		now := time.Now()
		_ = r.clientConn.SetReadDeadline(now)
		_ = r.serverConn.SetReadDeadline(now)
	})
	defer stop()

	dirs := []*direction{
		{
			name:   ClientToServer,
			in:     r.clientConn,
			out:    r.serverConn,
			policy: NewPolicy(r.cfg.Client),
			stats:  &r.c2s,
			accept: func(src netip.AddrPort) bool {
				if r.slot.Store(src) {
					logs.Infof("relay.client endpoint replaced client=%s", unmap(src))
				}
				return true
			},
			target: func() (netip.AddrPort, bool) { return r.upstream, true },
		},
		{
			name:   ServerToClient,
			in:     r.serverConn,
			out:    r.clientConn,
			policy: NewPolicy(r.cfg.Server),
			stats:  &r.s2c,
			accept: func(src netip.AddrPort) bool {
				return !r.cfg.ValidateUpstream || unmap(src) == r.upstream
			},
			target: r.slot.Load,
		},
	}

	logs.Infof(
		"relay.Run ready id=%s listen=%s upstream=%s server_side=%s",
		r.id, r.clientConn.LocalAddr(), r.upstream, r.serverConn.LocalAddr(),
	)

	var wg sync.WaitGroup
	for _, d := range dirs {
		wg.Add(1)
		go func(d *direction) {
			defer wg.Done()
			r.pump(ctx, d, make([]byte, r.cfg.RecvBuffer))
		}(d)
	}
	wg.Wait()
	logs.Infof("relay.Run shutdown id=%s", r.id)
	return nil
}

// pump is the sequential loop of one direction. The delay sleep runs outside
// every lock and blocks only this direction.
func (r *Relay) pump(ctx context.Context, d *direction, buf []byte) {
	for {
		n, src, err := d.in.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				logs.Debugf("relay.pump read error dir=%s err=%v", d.name, err)
			}
			continue
		}
		d.stats.inc(outcomeReceived)

		if !d.accept(src) {
			d.stats.inc(outcomeRejected)
			logs.Debugf("relay.pump reject dir=%s src=%s", d.name, unmap(src))
			continue
		}

		dec := d.policy.Decide()
		if dec.Drop {
			d.stats.inc(outcomeDropped)
			continue
		}
		if dec.Delayed {
			d.stats.inc(outcomeDelayed)
			observability.RecordRelayDelay(string(d.name), dec.Delay)
			if dec.Delay > 0 {
				time.Sleep(dec.Delay)
			}
		}

		dst, ok := d.target()
		if !ok {
			d.stats.inc(outcomeNoClient)
			continue
		}
		if _, err := d.out.WriteToUDPAddrPort(buf[:n], dst); err != nil {
			d.stats.inc(outcomeFailed)
			logs.Debugf("relay.pump write failed dir=%s dst=%s err=%v", d.name, dst, err)
			continue
		}
		d.stats.inc(outcomeForwarded)
	}
}

// Close releases both sockets. Run calls it on exit.
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = errors.Join(r.clientConn.Close(), r.serverConn.Close())
	})
	return err
}

func (r *Relay) Snapshot() Snapshot {
	snap := Snapshot{
		ID:             r.id,
		ListenAddr:     r.clientConn.LocalAddr().String(),
		UpstreamAddr:   r.upstream.String(),
		ClientChanges:  r.slot.Changes(),
		Uptime:         time.Since(r.startedAt),
		ClientToServer: r.c2s.snapshot(),
		ServerToClient: r.s2c.snapshot(),
	}
	if addr, ok := r.slot.Load(); ok {
		snap.LastClient = unmap(addr).String()
	}
	return snap
}
