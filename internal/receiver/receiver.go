package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/danmuck/lossyudp/internal/eventlog"
	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/protocol"
)

// DefaultRecvBuffer matches the relay buffer so relayed datagrams fit.
const DefaultRecvBuffer = 2048

// Result classifies one handled datagram.
type Result int

const (
	ResultDiscarded Result = iota
	ResultAccepted
	ResultDuplicate
)

func (r Result) String() string {
	switch r {
	case ResultAccepted:
		return "accepted"
	case ResultDuplicate:
		return "duplicate"
	default:
		return "discarded"
	}
}

// PayloadHandler surfaces a message to the operator.
type PayloadHandler func(msg protocol.Message, from net.Addr)

type Config struct {
	Codec      protocol.Codec
	RecvBuffer int
	// DedupWindow bounds the seen set; zero keeps every id.
	DedupWindow int
	OnPayload   PayloadHandler
	OnDuplicate PayloadHandler
}

func DefaultConfig() Config {
	return Config{
		Codec:      protocol.JSONCodec{},
		RecvBuffer: DefaultRecvBuffer,
	}
}

// Stats are receiver-local counters for process logs.
type Stats struct {
	Accepted   uint64
	Duplicates uint64
	Discarded  uint64
	AcksSent   uint64
}

// Receiver acknowledges messages arriving on one datagram socket.
type Receiver struct {
	conn  net.PacketConn
	cfg   Config
	sink  eventlog.Sink
	seen  *SeenSet
	stats Stats
}

func New(conn net.PacketConn, cfg Config, sink eventlog.Sink) (*Receiver, error) {
	if conn == nil {
		return nil, fmt.Errorf("receiver: nil conn")
	}
	if cfg.Codec == nil {
		cfg.Codec = protocol.JSONCodec{}
	}
	if cfg.RecvBuffer <= 0 {
		cfg.RecvBuffer = DefaultRecvBuffer
	}
	if sink == nil {
		sink = eventlog.Discard{}
	}
	return &Receiver{
		conn: conn,
		cfg:  cfg,
		sink: sink,
		seen: NewSeenSet(cfg.DedupWindow),
	}, nil
}

// Listen binds the receiver socket.
func Listen(addr string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", strings.TrimSpace(addr))
	if err != nil {
		return nil, fmt.Errorf("receiver: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("receiver: listen %s: %w", laddr, err)
	}
	return conn, nil
}

func (r *Receiver) Stats() Stats { return r.stats }

// Seen exposes the dedup set size.
func (r *Receiver) Seen() int { return r.seen.Len() }

// HandleDatagram decodes data and acknowledges it to from. Undecodable input
// is dropped with no reply and no event.
func (r *Receiver) HandleDatagram(data []byte, from net.Addr) Result {
	msg, err := r.cfg.Codec.DecodeMessage(data)
	if err != nil {
		r.stats.Discarded++
		logs.Debugf("receiver.HandleDatagram discard from=%s bytes=%d err=%v", from, len(data), err)
		return ResultDiscarded
	}
	r.sink.Emit(protocol.NewLogEvent(protocol.ComponentServer, protocol.EventRecv, msg.Seq))

	result := ResultAccepted
	if r.seen.Add(msg.Seq) {
		r.stats.Accepted++
		if r.cfg.OnPayload != nil {
			r.cfg.OnPayload(msg, from)
		}
	} else {
		result = ResultDuplicate
		r.stats.Duplicates++
		if r.cfg.OnDuplicate != nil {
			r.cfg.OnDuplicate(msg, from)
		}
	}

	ack, err := r.cfg.Codec.EncodeAck(protocol.Ack{Seq: msg.Seq})
	if err != nil {
		logs.Errf("receiver.HandleDatagram encode ack seq=%d err=%v", msg.Seq, err)
		return result
	}
	if _, err := r.conn.WriteTo(ack, from); err != nil {
		logs.Warnf("receiver.HandleDatagram ack write failed seq=%d to=%s err=%v", msg.Seq, from, err)
		return result
	}
	r.stats.AcksSent++
	r.sink.Emit(protocol.NewLogEvent(protocol.ComponentServer, protocol.EventAckSend, msg.Seq))
	return result
}

// Serve handles datagrams sequentially until ctx is done. Read errors other
// than shutdown are logged and the loop continues.
func (r *Receiver) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = r.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	logs.Infof("receiver.Serve listening addr=%s codec=%s", r.conn.LocalAddr(), r.cfg.Codec.Name())
	buf := make([]byte, r.cfg.RecvBuffer)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				logs.Infof("receiver.Serve shutdown accepted=%d duplicates=%d", r.stats.Accepted, r.stats.Duplicates)
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			logs.Warnf("receiver.Serve read error err=%v", err)
			continue
		}
		r.HandleDatagram(buf[:n], from)
	}
}

// PrintPayloads returns handlers that write operator-facing lines to w.
func PrintPayloads(w io.Writer) (onPayload, onDuplicate PayloadHandler) {
	onPayload = func(msg protocol.Message, from net.Addr) {
		fmt.Fprintf(w, "Got msg='%s' seq=%d from %s\n", msg.Msg, msg.Seq, from)
	}
	onDuplicate = func(msg protocol.Message, from net.Addr) {
		fmt.Fprintf(w, "Duplicate seq %d ignored\n", msg.Seq)
	}
	return onPayload, onDuplicate
}
