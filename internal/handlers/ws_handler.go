package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/config"
	"helpdesk-realtime-api/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsClient implements gateway.Transport by wrapping a websocket connection.
// Frames are queued on send and written by writePump, so a slow reader never
// holds up the goroutine that is fanning a frame out.
type wsClient struct {
	id         string
	credential string
	conn       *websocket.Conn
	send       chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn, credential string, sendBuffer int) *wsClient {
	return &wsClient{
		id:         uuid.NewString(),
		credential: credential,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

func (c *wsClient) ID() string            { return c.id }
func (c *wsClient) Credential() string    { return c.credential }
func (c *wsClient) Done() <-chan struct{} { return c.done }

// Send queues a frame without blocking. A client whose queue is full is
// closed; its read pump then takes the normal disconnect path.
func (c *wsClient) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- message:
		return true
	default:
		c.Close()
		return false
	}
}

func (c *wsClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// WebSocketHandler upgrades /ws requests and hands each connection to the gateway.
type WebSocketHandler struct {
	ctx     context.Context
	gateway *gateway.Gateway
	cfg     config.WebSocketConfig
	log     *zap.Logger
}

// NewWebSocketHandler binds connections to ctx, which should live as long as
// the server: request contexts are not reliable once the connection is hijacked.
func NewWebSocketHandler(ctx context.Context, gw *gateway.Gateway, cfg config.WebSocketConfig, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{ctx: ctx, gateway: gw, cfg: cfg, log: log}
}

// Handle serves GET /ws
func (h *WebSocketHandler) Handle(c *gin.Context) {
	// a missing credential is rejected by the gateway after the upgrade
	credential := auth.BearerToken(c.Request)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWSClient(conn, credential, h.cfg.SendBuffer)
	frames := make(chan []byte, 16)

	go h.readPump(client, frames)
	go h.writePump(client)

	h.gateway.Serve(h.ctx, client, frames)
}

// readPump forwards text frames until the socket fails, then closes the client.
func (h *WebSocketHandler) readPump(client *wsClient, frames chan<- []byte) {
	defer close(frames)
	defer client.Close()

	conn := client.conn
	conn.SetReadLimit(h.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		kind, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.log.Debug("websocket read failed", zap.String("socket_id", client.id), zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case frames <- message:
		case <-client.done:
			return
		}
	}
}

// writePump is the only writer of the socket. It drains queued frames and
// sends periodic pings; a failed write closes the client.
func (h *WebSocketHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	defer client.Close()

	conn := client.conn
	for {
		select {
		case <-client.done:
			return
		case message := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Debug("websocket write failed", zap.String("socket_id", client.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}
