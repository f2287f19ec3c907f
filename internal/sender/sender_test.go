package sender

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/lossyudp/internal/protocol"
	"github.com/danmuck/lossyudp/internal/testutil/testlog"
)

type recordSink struct {
	mu     sync.Mutex
	events []protocol.LogEvent
}

func (r *recordSink) Emit(ev protocol.LogEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recordSink) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Event == event {
			n++
		}
	}
	return n
}

func listenPeer(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen peer: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestSender(t *testing.T, peer *net.UDPConn, cfg Config, sink *recordSink) *Sender {
	t.Helper()
	conn, err := Dial("127.0.0.1:0", peer.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	s, err := New(conn, cfg, sink)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	return s
}

// ackAll acknowledges every decodable message until the peer is closed.
func ackAll(peer *net.UDPConn) {
	codec := protocol.JSONCodec{}
	buf := make([]byte, 2048)
	for {
		n, addr, err := peer.ReadFromUDP(buf)
		if err != nil {
			return
		}
		msg, err := codec.DecodeMessage(buf[:n])
		if err != nil {
			continue
		}
		raw, _ := codec.EncodeAck(protocol.Ack{Seq: msg.Seq})
		_, _ = peer.WriteToUDP(raw, addr)
	}
}

// collect reads datagrams until the peer stays quiet for idle.
func collect(peer *net.UDPConn, idle time.Duration) [][]byte {
	var out [][]byte
	buf := make([]byte, 2048)
	for {
		_ = peer.SetReadDeadline(time.Now().Add(idle))
		n, _, err := peer.ReadFromUDP(buf)
		if err != nil {
			return out
		}
		out = append(out, append([]byte(nil), buf[:n]...))
	}
}

func TestSendAndConfirmAcksOnFirstAttempt(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	sink := &recordSink{}
	cfg := DefaultConfig()
	cfg.Timeout = 500 * time.Millisecond
	s := newTestSender(t, peer, cfg, sink)

	got := make(chan int, 1)
	go func() {
		codec := protocol.JSONCodec{}
		buf := make([]byte, 2048)
		n, addr, err := peer.ReadFromUDP(buf)
		if err != nil {
			got <- -1
			return
		}
		msg, _ := codec.DecodeMessage(buf[:n])
		raw, _ := codec.EncodeAck(protocol.Ack{Seq: msg.Seq})
		_, _ = peer.WriteToUDP(raw, addr)
		got <- 1 + len(collect(peer, 150*time.Millisecond))
	}()

	out, err := s.SendAndConfirm(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !out.Acked || out.Seq != 1 || out.Transmissions != 1 || out.Retries != 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if n := <-got; n != 1 {
		t.Fatalf("peer saw %d datagrams, want 1", n)
	}
	if sink.count(protocol.EventSend) != 1 || sink.count(protocol.EventAckRecv) != 1 || sink.count(protocol.EventResend) != 0 {
		t.Fatalf("unexpected events: %+v", sink.events)
	}
}

func TestSendAndConfirmExhaustsRetriesWithIdenticalBytes(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	sink := &recordSink{}
	cfg := DefaultConfig()
	cfg.Timeout = 40 * time.Millisecond
	cfg.MaxRetries = 3
	resends := 0
	cfg.OnResend = func(seq uint64, retry int) { resends++ }
	s := newTestSender(t, peer, cfg, sink)

	seen := make(chan [][]byte, 1)
	go func() { seen <- collect(peer, 400*time.Millisecond) }()

	out, err := s.SendAndConfirm(context.Background(), "lost")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Acked || out.Seq != 1 {
		t.Fatalf("expected Failed(1), got %+v", out)
	}
	if out.Retries != 3 || out.Transmissions != 4 || resends != 3 {
		t.Fatalf("unexpected retry accounting: %+v resends=%d", out, resends)
	}

	datagrams := <-seen
	if len(datagrams) != 4 {
		t.Fatalf("peer saw %d datagrams, want 4", len(datagrams))
	}
	for i := 1; i < len(datagrams); i++ {
		if !bytes.Equal(datagrams[0], datagrams[i]) {
			t.Fatalf("retransmission %d differs: %q vs %q", i, datagrams[i], datagrams[0])
		}
	}
	if sink.count(protocol.EventSend) != 1 || sink.count(protocol.EventResend) != 3 || sink.count(protocol.EventAckRecv) != 0 {
		t.Fatalf("unexpected events: %+v", sink.events)
	}
}

func TestSendAndConfirmZeroRetries(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond
	cfg.MaxRetries = 0
	s := newTestSender(t, peer, cfg, nil)

	out, err := s.SendAndConfirm(context.Background(), "once")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Acked || out.Transmissions != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestSendAndConfirmIgnoresForeignAck(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	s := newTestSender(t, peer, cfg, &recordSink{})

	go func() {
		codec := protocol.JSONCodec{}
		buf := make([]byte, 2048)
		n, addr, err := peer.ReadFromUDP(buf)
		if err != nil {
			return
		}
		msg, _ := codec.DecodeMessage(buf[:n])
		stale, _ := codec.EncodeAck(protocol.Ack{Seq: msg.Seq + 100})
		_, _ = peer.WriteToUDP(stale, addr)
		_, _ = peer.WriteToUDP([]byte("garbage"), addr)
		good, _ := codec.EncodeAck(protocol.Ack{Seq: msg.Seq})
		_, _ = peer.WriteToUDP(good, addr)
	}()

	out, err := s.SendAndConfirm(context.Background(), "x")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !out.Acked || out.Transmissions != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestForeignAcksDoNotExtendWait(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	cfg.MaxRetries = 1
	s := newTestSender(t, peer, cfg, nil)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		codec := protocol.JSONCodec{}
		buf := make([]byte, 2048)
		_, addr, err := peer.ReadFromUDP(buf)
		if err != nil {
			return
		}
		stale, _ := codec.EncodeAck(protocol.Ack{Seq: 999})
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_, _ = peer.WriteToUDP(stale, addr)
			}
		}
	}()

	start := time.Now()
	out, err := s.SendAndConfirm(context.Background(), "x")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Acked || out.Transmissions != 2 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if elapsed < 180*time.Millisecond || elapsed > time.Second {
		t.Fatalf("unexpected elapsed=%v for two 100ms attempts", elapsed)
	}
}

func TestSequenceIdsIncreaseFromOne(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	go ackAll(peer)
	s := newTestSender(t, peer, DefaultConfig(), nil)

	for want := uint64(1); want <= 3; want++ {
		out, err := s.SendAndConfirm(context.Background(), "m")
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if !out.Acked || out.Seq != want {
			t.Fatalf("unexpected outcome: %+v want seq=%d", out, want)
		}
	}
	if s.NextSeq() != 4 {
		t.Fatalf("unexpected next seq: %d", s.NextSeq())
	}
}

func TestSendAndConfirmHonorsCancel(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	s := newTestSender(t, peer, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.SendAndConfirm(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancel took too long: %v", time.Since(start))
	}
}

func TestRunConsoleSkipsBlankLines(t *testing.T) {
	testlog.Start(t)
	peer := listenPeer(t)
	go ackAll(peer)
	s := newTestSender(t, peer, DefaultConfig(), nil)

	var out bytes.Buffer
	sum, err := s.RunConsole(context.Background(), strings.NewReader("hello\n   \nworld\n"), &out)
	if err != nil {
		t.Fatalf("run console: %v", err)
	}
	if sum.Acked != 2 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	text := out.String()
	if !strings.Contains(text, "ACK for seq 1") || !strings.Contains(text, "ACK for seq 2") || strings.Contains(text, "seq 3") {
		t.Fatalf("unexpected console output: %q", text)
	}
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Timeout = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTimeout) {
		t.Fatalf("expected ErrInvalidTimeout, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.MaxRetries = -1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxRetries) {
		t.Fatalf("expected ErrInvalidMaxRetries, got %v", err)
	}
}
