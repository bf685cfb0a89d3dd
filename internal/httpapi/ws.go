package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/suidex/dex-proxy/internal/eventsub"
)

// notification is the JSON-RPC 2.0 envelope pushed over the WebSocket
// surface.
type notification struct {
	JSONRPC string           `json:"jsonrpc"`
	Method  string           `json:"method"`
	Params  notificationBody `json:"params"`
}

type notificationBody struct {
	Channel eventsub.Channel   `json:"channel"`
	Type    eventsub.EventType `json:"type"`
	Data    interface{}        `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans a single stream of domain-event notifications out to every
// connected websocket client. Grounded on the teacher's networks/p2p peer
// broadcast pattern, adapted here from peer gossip to client notification
// since the traffic here is one-directional (server push only): clients
// live in a mutex-guarded set and Notify writes to each client's send
// queue directly, with no separate dispatch loop.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Notify implements eventsub.Notifier: broadcasts to every connected
// client, dropping the message for any client whose send buffer is full
// rather than blocking the event-routing goroutine.
func (h *Hub) Notify(channel eventsub.Channel, etype eventsub.EventType, data interface{}) {
	msg, err := json.Marshal(notification{
		JSONRPC: "2.0",
		Method:  "subscription",
		Params:  notificationBody{Channel: channel, Type: etype, Data: data},
	})
	if err != nil {
		logger.Warn("failed to marshal notification", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logger.Warn("dropping notification for slow websocket client")
		}
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

// Notify implements eventsub.Notifier by forwarding to the websocket hub,
// letting main wire *Server directly as the subscriber's notification sink.
func (s *Server) Notify(channel eventsub.Channel, etype eventsub.EventType, data interface{}) {
	s.hub.Notify(channel, etype, data)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 64)}
	s.hub.register(c)

	go c.writeLoop()
	c.readLoop(s.hub)
}

// readLoop discards inbound frames (this endpoint is server-push only) and
// exists solely to detect the peer closing the connection.
func (c *wsClient) readLoop(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
