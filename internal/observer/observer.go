// Package observer streams flushed war events to WebSocket clients.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/core/event"
)

// Status is the latest summary published by the simulation loop.
type Status struct {
	Elapsed      float64 `json:"elapsed"`
	Ticks        uint64  `json:"ticks"`
	Phase        string  `json:"phase"`
	Alive        [2]int  `json:"alive"`
	Tickets      [2]int  `json:"tickets"`
	Materialized int     `json:"materialized"`
}

type batchMsg struct {
	Type   string            `json:"type"`
	Seq    uint64            `json:"seq"`
	Events []json.RawMessage `json:"events"`
}

type client struct {
	out chan []byte
}

// Hub fans event batches out to connected clients. Broadcast never blocks the
// caller: a client whose buffer is full misses that batch.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	buffer   int

	mu      sync.Mutex
	clients map[*client]struct{}

	seq     atomic.Uint64
	dropped atomic.Uint64
	status  atomic.Pointer[Status]
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	h := &Hub{
		log:    log,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	h.status.Store(&Status{})
	return h
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts batches skipped because a client fell behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Listener adapts the hub to an event bus subscription.
func (h *Hub) Listener() event.Listener { return h.Broadcast }

// Broadcast encodes batch once and queues it for every client.
func (h *Hub) Broadcast(batch []event.Event) {
	if len(batch) == 0 || h.Clients() == 0 {
		return
	}
	msg := batchMsg{Type: "events", Seq: h.seq.Add(1), Events: make([]json.RawMessage, 0, len(batch))}
	for _, ev := range batch {
		b, err := event.Encode(ev)
		if err != nil {
			h.log.Warn("event encode failed", zap.String("kind", string(ev.Kind())), zap.Error(err))
			continue
		}
		msg.Events = append(msg.Events, b)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("batch encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// Publish replaces the status served by the status endpoint.
func (h *Hub) Publish(st Status) { h.status.Store(&st) }

// Handler serves /ws and /status.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/status", h.serveStatus)
	return mux
}

func (h *Hub) serveStatus(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(h.status.Load())
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) serveWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{out: make(chan []byte, h.buffer)}
	h.add(c)
	defer h.remove(c)
	h.log.Debug("observer connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// reader loop only detects the peer going away
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-done
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
}

// Serve listens on addr until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	h.log.Info("observer listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
