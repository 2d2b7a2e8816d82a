package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

// Client - одно websocket-подключение аутентифицированного актора
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	actor access.Actor
	send  chan []byte
}

// Hub хранит подключенных клиентов и рассылает им события.
// Клиент получает событие, только если ему разрешено видеть инцидент.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	policy  *access.Policy
	logger  *logrus.Logger
}

func NewHub(policy *access.Policy, logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		policy:  policy,
		logger:  logger,
	}
}

func (h *Hub) newClient(conn *websocket.Conn, actor access.Actor) *Client {
	return &Client{
		hub:   h,
		conn:  conn,
		actor: actor,
		send:  make(chan []byte, sendBufferSize),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister можно вызывать повторно
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount возвращает число активных подключений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast доставляет событие всем клиентам, которым оно доступно.
// Клиент с переполненным буфером отключается, чтобы не задерживать остальных.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal realtime event")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !h.policy.CanView(c.actor, event.ReporterID) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.WithField("actor_id", c.actor.ID).Warn("Dropping slow websocket client")
		h.unregister(c)
	}
}

// Close отключает всех клиентов при остановке сервиса
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve обслуживает подключение до его закрытия
func (h *Hub) Serve(conn *websocket.Conn, actor access.Actor) {
	c := h.newClient(conn, actor)
	h.register(c)

	log := h.logger.WithFields(logrus.Fields{
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	})
	log.Info("WebSocket client connected")

	go c.writePump(log)
	c.readPump(log)

	log.Info("WebSocket client disconnected")
}

// readPump читает входящие кадры только ради pong и обнаружения закрытия
func (c *Client) readPump(log *logrus.Entry) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.WithError(err).Warn("Failed to set initial read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("WebSocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump(log *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// хаб закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithError(err).Warn("Failed to write realtime event")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
