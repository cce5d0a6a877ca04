package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// frame is what every websocket client receives: the bus topic and its
// raw JSON payload, nested so a client can demux multiple subscriptions
// on one connection. Follows a WebSocketMessage-style
// Type/Channel/Data framing (services/websocket/websocket_handlers.go),
// simplified down to the one concern this demo adapter needs.
type frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans every topic it is told to relay out to every connected
// websocket client. Follows a WebSocketGateway-style connection
// registry (services/websocket/ws_gateway_core.go), trimmed to a single
// broadcast-to-all-clients model since this is a demonstration adapter,
// not a licensed multi-tenant gateway.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// Relay subscribes to topic on bus and forwards every message to every
// connected client, wrapped in a frame naming its topic. Runs until ctx
// is cancelled.
func (h *Hub) Relay(ctx context.Context, bus *Bus, topic string) error {
	msgs, err := bus.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for payload := range msgs {
			h.broadcast(frame{Topic: topic, Payload: payload})
		}
	}()
	return nil
}

func (h *Hub) broadcast(f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Warn("hub: failed to marshal frame", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("hub: dropping frame for slow client")
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and pumps
// broadcast frames to it until the connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("hub: websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 256)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.send)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
