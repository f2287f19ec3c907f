package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/lossyudp/internal/metrics"
	"github.com/danmuck/lossyudp/internal/relay"
	"github.com/danmuck/lossyudp/internal/testutil/testlog"
	"github.com/gorilla/websocket"
)

func fixedState() State {
	return State{
		Metrics:      metrics.Snapshot{Sent: 10, Received: 8, AckSent: 8, AckReceived: 5},
		Ignored:      2,
		LogProducers: 1,
		Relay: relay.Snapshot{
			ID:             "0123456789abcdef",
			ListenAddr:     "127.0.0.1:4000",
			UpstreamAddr:   "127.0.0.1:5000",
			ClientToServer: relay.DirectionStats{Received: 10, Dropped: 2, Forwarded: 8},
		},
	}
}

func TestRenderScalesBars(t *testing.T) {
	out := Render(fixedState())
	if !strings.Contains(out, "relay 01234567 ") {
		t.Fatalf("missing short id: %q", out)
	}
	if !strings.Contains(out, "client -") {
		t.Fatalf("missing client placeholder: %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "sent":
			if strings.Count(line, "#") != barWidth {
				t.Fatalf("peak counter must fill the bar: %q", line)
			}
		case "ack_received":
			if strings.Count(line, "#") != barWidth/2 {
				t.Fatalf("half counter must fill half the bar: %q", line)
			}
		}
	}
	if !strings.Contains(out, "client_to_server  recv 10  drop 2") {
		t.Fatalf("missing direction stats: %q", out)
	}
}

func TestBarEdges(t *testing.T) {
	if bar(0, 0) != "" || bar(0, 5) != "" {
		t.Fatalf("zero values must render empty")
	}
	if bar(1, 1000) != "#" {
		t.Fatalf("non-zero values must render at least one cell")
	}
}

func TestTerminalLineModeQuits(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	term := &Terminal{In: strings.NewReader("status\nq\n"), Out: &out, State: fixedState}

	done := make(chan error, 1)
	go func() { done <- term.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("terminal did not quit on q")
	}
	if !strings.Contains(out.String(), "sent") {
		t.Fatalf("expected a final render, got %q", out.String())
	}
}

func TestTerminalStopsOnContext(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	term := &Terminal{In: strings.NewReader(""), Out: &out, State: fixedState}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := term.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRouterEndpoints(t *testing.T) {
	testlog.Start(t)
	r := NewRouter(context.Background(), RouterConfig{ID: "relay-1", State: fixedState})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"relay":"relay-1"`) {
		t.Fatalf("unexpected /health: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	var st State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if st.Metrics != fixedState().Metrics || st.Relay.ClientToServer.Dropped != 2 {
		t.Fatalf("unexpected snapshot: %+v", st)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lossyudp_") {
		t.Fatalf("unexpected /metrics: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("/ws must be absent without a hub, got %d", rec.Code)
	}
}

func TestHubPublishesToViewers(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	go hub.Publish(ctx, 20*time.Millisecond, fixedState)

	srv := httptest.NewServer(NewRouter(ctx, RouterConfig{ID: "relay-1", State: fixedState, Hub: hub}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var st State
	if err := json.Unmarshal(frame, &st); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if st.Metrics.Sent != 10 {
		t.Fatalf("unexpected frame: %+v", st)
	}

	_ = conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Viewers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("viewer not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
