package result

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// upgrader mirrors the teacher's agentexec websocket server config:
// fixed buffer sizes. Origin checking is left permissive since this
// stream is read-only observability, not a control channel.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts fuzz Results to connected observers as they're emitted,
// adapted from the teacher's multi-tenant websocket hub pattern
// (internal/websocket) into a single-tenant, observability-only stream: a
// dashboard can watch fuzz results go by, but never sends anything back.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Register adds conn as a broadcast recipient and starts its write pump.
// The returned func unregisters it; callers should defer it from the
// handler goroutine that owns conn.
func (h *Hub) Register(conn *websocket.Conn) func() {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	go func() {
		for msg := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if ch, ok := h.clients[conn]; ok {
			close(ch)
			delete(h.clients, conn)
		}
	}
}

// Broadcast fans r out to every registered client, dropping the message for
// any subscriber whose buffer is full rather than blocking the orchestrator
// (the teacher's hub makes the same tradeoff for slow dashboard clients).
func (h *Hub) Broadcast(r *Result) {
	payload, err := r.MarshalIndent()
	if err != nil {
		log.Debug().Err(err).Msg("result hub: marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("result hub: subscriber blocked, dropping message")
		}
	}
}

// ServeHTTP upgrades r to a websocket connection and registers it as a
// broadcast recipient until the client disconnects, the way the teacher's
// agentexec server handles its control-plane upgrade endpoint. It reads
// from conn only to process control frames and notice the disconnect;
// any data message a client sends is discarded, since this stream is
// observability-only, one-directional.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("result hub: upgrade failed")
		return
	}
	unregister := h.Register(conn)
	defer unregister()
	defer conn.Close()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount reports how many observers are currently registered.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
