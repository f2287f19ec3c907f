package metrics

import (
	"context"
	"net"
	"strings"
	"sync/atomic"

	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/observability"
)

// Listener accepts log producers over TCP and feeds their lines to an Aggregator.
type Listener struct {
	agg    *Aggregator
	ln     net.Listener
	active atomic.Int64
}

// Listen binds addr. Bind failure is a startup error.
func Listen(addr string, agg *Aggregator) (*Listener, error) {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return nil, err
	}
	return &Listener{agg: agg, ln: ln}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) ActiveConnections() int64 { return l.active.Load() }

// Serve accepts producers until ctx is done; each connection gets its own goroutine.
func (l *Listener) Serve(ctx context.Context) error {
	defer l.ln.Close()
	logs.Infof("metrics.Listener listening addr=%q", l.ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go l.handleConn(ctx, conn)
	}
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	remote := conn.RemoteAddr().String()
	active := l.active.Add(1)
	observability.LogConnectionOpened()
	logs.Infof("metrics.Listener producer connected remote=%q active=%d", remote, active)
	defer func() {
		remaining := l.active.Add(-1)
		observability.LogConnectionClosed()
		logs.Infof("metrics.Listener producer disconnected remote=%q active=%d", remote, remaining)
	}()

	if err := l.agg.Consume(conn); err != nil && ctx.Err() == nil {
		logs.Debugf("metrics.Listener read error remote=%q err=%v", remote, err)
	}
}
