package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64

	MessageTypeAppointment = "appointment"
)

// Message is one frame of the appointment update stream.
type Message struct {
	Type      string                   `json:"type"`
	Event     *domain.AppointmentEvent `json:"event,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

type TokenParser interface {
	ParseToken(ctx context.Context, token string) (domain.Claims, error)
}

type Client struct {
	UserID string
	Role   domain.UserRole
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
}

type delivery struct {
	payload   []byte
	patientID string
}

// Hub pushes appointment events to the connected patient and to every
// connected admin. A user may hold several connections at once.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	tokens TokenParser
	logger *zap.Logger
	mutex  sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewHub(tokens TokenParser, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		tokens:     tokens,
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.Info("клиент подключен",
				zap.String("userID", client.UserID),
				zap.String("role", string(client.Role)))

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Info("клиент отключен", zap.String("userID", client.UserID))

		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

// Publish queues event for the patient it belongs to and for admins.
func (h *Hub) Publish(ctx context.Context, event domain.AppointmentEvent) error {
	payload, err := json.Marshal(Message{
		Type:      MessageTypeAppointment,
		Event:     &event,
		Timestamp: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	select {
	case h.broadcast <- delivery{payload: payload, patientID: event.PatientID}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectedClients returns the number of open connections.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(d delivery) {
	h.mutex.RLock()
	var slow []*Client
	for client := range h.clients {
		if client.Role != domain.UserRoleAdmin && client.UserID != d.patientID {
			continue
		}
		select {
		case client.Send <- d.payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		h.logger.Warn("клиент не успевает читать, соединение закрыто", zap.String("userID", client.UserID))
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// HandleWebSocket authenticates by the "token" query parameter or the
// Authorization header, since browsers cannot set headers on upgrade requests.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "требуется токен", "code": http.StatusUnauthorized})
		return
	}

	claims, err := h.tokens.ParseToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Info("отклонено подключение к websocket", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "недействительный токен", "code": http.StatusUnauthorized})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ошибка установки websocket соединения", zap.Error(err))
		return
	}

	client := &Client{
		UserID: claims.UserID,
		Role:   claims.Role,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Hub:    h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only keeps the connection alive. The stream is server to client.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("ошибка websocket", zap.String("userID", c.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Warn("ошибка отправки сообщения",
					zap.String("userID", c.UserID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
