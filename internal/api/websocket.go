package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/processing"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected     = "connected"
	MsgTypeInvoiceUpdate = "invoice:update"
	MsgTypePong          = "pong"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 64
)

// WSMessage is one message on the invoice feed
type WSMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan WSMessage
}

// InvoiceHub fans invoice changes out to every connected websocket client.
// It implements processing.Notifier.
type InvoiceHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewInvoiceHub creates a hub with no clients
func NewInvoiceHub(logger *slog.Logger) *InvoiceHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		logger:  logger.With(slog.String("component", "websocket")),
		clients: make(map[*wsClient]struct{}),
	}
}

// InvoiceChanged broadcasts inv. Clients that cannot keep up are dropped.
func (h *InvoiceHub) InvoiceChanged(inv models.Invoice) {
	msg := WSMessage{
		Type:      MsgTypeInvoiceUpdate,
		Payload:   inv.Clone(),
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			h.logger.Warn("Dropping slow websocket client")
			h.removeLocked(cl)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *InvoiceHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *InvoiceHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		h.removeLocked(cl)
	}
}

// HandleInvoiceFeed upgrades the connection and streams invoice updates
func (h *InvoiceHub) HandleInvoiceFeed(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &wsClient{conn: ws, send: make(chan WSMessage, wsSendBuffer)}
	if !h.add(cl) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(wsWriteWait))
		ws.Close()
		return nil
	}
	h.logger.Debug("Client connected", slog.String("remote_addr", c.RealIP()))

	h.trySend(cl, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	go h.writePump(cl)
	h.readLoop(cl)

	h.remove(cl)
	h.logger.Debug("Client disconnected", slog.String("remote_addr", c.RealIP()))
	return nil
}

// readLoop answers pings until the client goes away
func (h *InvoiceHub) readLoop(cl *wsClient) {
	cl.conn.SetReadLimit(4 * 1024)
	cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WSMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("Connection error", slog.Any("error", err))
			}
			return
		}
		if msg.Type == MsgTypePing {
			h.trySend(cl, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		}
	}
}

// writePump is the only goroutine writing to the connection
func (h *InvoiceHub) writePump(cl *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("Failed to send message", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *InvoiceHub) add(cl *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *InvoiceHub) trySend(cl *wsClient, msg WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- msg:
	default:
	}
}

func (h *InvoiceHub) remove(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

// removeLocked closes the client's queue once; writePump then closes the conn.
func (h *InvoiceHub) removeLocked(cl *wsClient) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}

var _ FeedHandler = (*InvoiceHub)(nil)
var _ processing.Notifier = (*InvoiceHub)(nil)
