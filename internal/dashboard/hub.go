package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 2 * time.Second
	broadcastDepth = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans JSON frames out to every connected websocket viewer.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan []byte, broadcastDepth),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set until ctx is done, then closes every viewer.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			logs.Infof("dashboard.Hub viewer connected remote=%s viewers=%d", conn.RemoteAddr(), n)
		case conn := <-h.unregister:
			h.drop(conn)
		case frame := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					logs.Debugf("dashboard.Hub write failed remote=%s err=%v", conn.RemoteAddr(), err)
					_ = conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

// Viewers is the number of connected websocket clients.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues v for every viewer. A full queue drops the frame so slow
// viewers never stall the caller.
func (h *Hub) Broadcast(v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- frame:
	default:
		logs.Debug("dashboard.Hub broadcast queue full, frame dropped")
	}
	return nil
}

// Publish broadcasts state every interval until ctx is done.
func (h *Hub) Publish(ctx context.Context, interval time.Duration, state StateFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.Viewers() == 0 {
				continue
			}
			if err := h.Broadcast(state()); err != nil {
				logs.Warnf("dashboard.Hub encode failed err=%v", err)
			}
		}
	}
}

// ServeWS upgrades the request and registers the viewer. Inbound frames are
// read and discarded so close frames are noticed.
func (h *Hub) ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Debugf("dashboard.Hub upgrade failed err=%v", err)
		return
	}
	select {
	case h.register <- conn:
	case <-ctx.Done():
		_ = conn.Close()
		return
	}
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
}
