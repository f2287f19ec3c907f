package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/relay"
	"golang.org/x/term"
)

const (
	barWidth    = 30
	keyCtrlC    = 0x03
	clearScreen = "\x1b[H\x1b[2J"
)

// Terminal redraws State on a ticker and quits on q.
type Terminal struct {
	In       io.Reader
	Out      io.Writer
	State    StateFunc
	Interval time.Duration
}

// Run blocks until q is read, Ctrl-C is pressed in raw mode, or ctx is done.
// A terminal put into raw mode is always restored before Run returns. When In
// is not a terminal, lines are read instead and nothing is redrawn.
func (t *Terminal) Run(ctx context.Context) error {
	interval := t.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	f, isFile := t.In.(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) {
		return t.runLines(ctx)
	}

	prev, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return fmt.Errorf("dashboard: raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(int(f.Fd()), prev); err != nil {
			logs.Errf("dashboard.Terminal restore failed err=%v", err)
		}
	}()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		buf := make([]byte, 1)
		for {
			n, err := f.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && isQuitKey(buf[0]) {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	t.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			return nil
		case <-ticker.C:
			t.draw()
		}
	}
}

func (t *Terminal) runLines(ctx context.Context) error {
	quit := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(t.In)
		for sc.Scan() {
			if strings.EqualFold(strings.TrimSpace(sc.Text()), "q") {
				close(quit)
				return
			}
		}
		// EOF: keep running until signalled.
	}()
	select {
	case <-ctx.Done():
	case <-quit:
	}
	fmt.Fprint(t.Out, Render(t.State()))
	return nil
}

func (t *Terminal) draw() {
	frame := strings.ReplaceAll(Render(t.State()), "\n", "\r\n")
	fmt.Fprint(t.Out, clearScreen+frame+"\r\npress q to quit\r\n")
}

func isQuitKey(b byte) bool {
	return b == 'q' || b == 'Q' || b == keyCtrlC
}

// Render formats st as plain text with one bar per counter.
func Render(st State) string {
	var b strings.Builder
	r := st.Relay
	fmt.Fprintf(&b, "lossyudp relay %s  up %s\n", shortID(r.ID), r.Uptime.Truncate(time.Second))
	client := r.LastClient
	if client == "" {
		client = "-"
	}
	fmt.Fprintf(&b, "listen %s  upstream %s  client %s\n\n", r.ListenAddr, r.UpstreamAddr, client)

	m := st.Metrics
	rows := []struct {
		name string
		v    uint64
	}{
		{"sent", m.Sent},
		{"received", m.Received},
		{"ack_sent", m.AckSent},
		{"ack_received", m.AckReceived},
	}
	var peak uint64
	for _, row := range rows {
		peak = max(peak, row.v)
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-13s %-*s %d\n", row.name, barWidth, bar(row.v, peak), row.v)
	}
	fmt.Fprintf(&b, "\n  producers %d  ignored %d\n\n", st.LogProducers, st.Ignored)

	writeDirection(&b, relay.ClientToServer, r.ClientToServer)
	writeDirection(&b, relay.ServerToClient, r.ServerToClient)
	return b.String()
}

func writeDirection(b *strings.Builder, dir relay.Direction, s relay.DirectionStats) {
	fmt.Fprintf(b, "  %-17s recv %d  drop %d  delay %d  fwd %d  reject %d  no_client %d\n",
		dir, s.Received, s.Dropped, s.Delayed, s.Forwarded, s.Rejected, s.NoClient)
}

func bar(v, peak uint64) string {
	if peak == 0 || v == 0 {
		return ""
	}
	n := int(v * barWidth / peak)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
