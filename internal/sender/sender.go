package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/danmuck/lossyudp/internal/eventlog"
	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/protocol"
	"github.com/google/uuid"
)

// Outcome reports how one message ended.
type Outcome struct {
	Seq   uint64
	Acked bool
	// Transmissions counts the first send plus every retransmission.
	Transmissions int
	Retries       int
}

func (o Outcome) String() string {
	if o.Acked {
		return fmt.Sprintf("Acked(%d)", o.Seq)
	}
	return fmt.Sprintf("Failed(%d)", o.Seq)
}

// Sender drives one stop-and-wait flow over a connected datagram socket.
type Sender struct {
	conn    net.Conn
	cfg     Config
	sink    eventlog.Sink
	session string
	nextSeq uint64
	buf     []byte
}

// New wraps a connected datagram conn. A nil sink discards events.
func New(conn net.Conn, cfg Config, sink eventlog.Sink) (*Sender, error) {
	if conn == nil {
		return nil, fmt.Errorf("sender: nil conn")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if sink == nil {
		sink = eventlog.Discard{}
	}
	return &Sender{
		conn:    conn,
		cfg:     cfg,
		sink:    sink,
		session: uuid.NewString(),
		nextSeq: protocol.FirstSeq,
		buf:     make([]byte, cfg.RecvBuffer),
	}, nil
}

// Dial binds bindAddr (empty picks an ephemeral port) and connects to target.
func Dial(bindAddr, target string) (*net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("sender: resolve target %q: %w", target, err)
	}
	var laddr *net.UDPAddr
	if strings.TrimSpace(bindAddr) != "" {
		laddr, err = net.ResolveUDPAddr("udp", strings.TrimSpace(bindAddr))
		if err != nil {
			return nil, fmt.Errorf("sender: resolve bind %q: %w", bindAddr, err)
		}
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("sender: dial %s: %w", raddr, err)
	}
	return conn, nil
}

// Session identifies this sender run in process logs.
func (s *Sender) Session() string { return s.session }

// NextSeq is the id the next SendAndConfirm call will use.
func (s *Sender) NextSeq() uint64 { return s.nextSeq }

// SendAndConfirm transmits payload and blocks until it is acknowledged or the
// retry budget is spent. A non-nil error is returned only for ctx cancellation
// or an encode failure; retry exhaustion is reported through Outcome.
func (s *Sender) SendAndConfirm(ctx context.Context, payload string) (Outcome, error) {
	seq := s.nextSeq
	s.nextSeq++
	out := Outcome{Seq: seq}

	encoded, err := s.cfg.Codec.EncodeMessage(protocol.Message{Msg: payload, Seq: seq})
	if err != nil {
		return out, fmt.Errorf("sender: encode seq=%d: %w", seq, err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	s.transmit(encoded, seq)
	out.Transmissions++
	s.sink.Emit(protocol.NewLogEvent(protocol.ComponentClient, protocol.EventSend, seq))

	for {
		acked, err := s.awaitAck(ctx, seq, time.Now().Add(s.cfg.Timeout))
		if err != nil {
			return out, err
		}
		if acked {
			out.Acked = true
			s.sink.Emit(protocol.NewLogEvent(protocol.ComponentClient, protocol.EventAckRecv, seq))
			logs.Debugf("sender.SendAndConfirm acked session=%s seq=%d transmissions=%d", s.session, seq, out.Transmissions)
			return out, nil
		}
		if out.Retries >= s.cfg.MaxRetries {
			logs.Warnf("sender.SendAndConfirm failed session=%s seq=%d retries=%d", s.session, seq, out.Retries)
			return out, nil
		}
		out.Retries++
		s.transmit(encoded, seq)
		out.Transmissions++
		s.sink.Emit(protocol.NewLogEvent(protocol.ComponentClient, protocol.EventResend, seq))
		if s.cfg.OnResend != nil {
			s.cfg.OnResend(seq, out.Retries)
		}
	}
}

// transmit writes the encoded message; a failed write counts as a lost datagram.
func (s *Sender) transmit(encoded []byte, seq uint64) {
	if _, err := s.conn.Write(encoded); err != nil {
		logs.Warnf("sender.transmit write failed session=%s seq=%d err=%v", s.session, seq, err)
	}
}

// awaitAck reads until a matching ack arrives or deadline passes. Foreign acks
// and undecodable datagrams are skipped without moving the deadline.
func (s *Sender) awaitAck(ctx context.Context, seq uint64, deadline time.Time) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return false, fmt.Errorf("sender: set read deadline: %w", err)
		}
		n, err := s.conn.Read(s.buf)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return false, cerr
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return false, nil
			}
			if errors.Is(err, net.ErrClosed) {
				return false, fmt.Errorf("sender: read: %w", err)
			}
			// ICMP refusals surface here; keep waiting out the attempt.
			logs.Debugf("sender.awaitAck read error session=%s seq=%d err=%v", s.session, seq, err)
			if !time.Now().Before(deadline) {
				return false, nil
			}
			continue
		}
		ack, err := s.cfg.Codec.DecodeAck(s.buf[:n])
		if err != nil {
			logs.Debugf("sender.awaitAck discard undecodable reply session=%s bytes=%d", s.session, n)
			continue
		}
		if ack.Seq != seq {
			logs.Debugf("sender.awaitAck ignore stale ack session=%s want=%d got=%d", s.session, seq, ack.Seq)
			continue
		}
		return true, nil
	}
}
