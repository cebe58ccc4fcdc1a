package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"arena-shooter/internal/input"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal is the maximum number of websocket connections allowed
	MaxWSConnectionsTotal = 64

	// MaxWSConnectionsPerIP is the maximum websocket connections per IP
	MaxWSConnectionsPerIP = 4

	// BroadcastInterval is how often the latest snapshot is pushed
	BroadcastInterval = 50 * time.Millisecond

	// InputMessagesPerSec bounds input messages per connection; a client
	// sending once per rendered frame at 120 Hz stays under it.
	InputMessagesPerSec = 120

	writeWait       = 5 * time.Second
	pongWait        = 30 * time.Second
	pingPeriod      = pongWait * 9 / 10
	maxMessageBytes = 1024
	sendBufferSize  = 8
)

// Server to client events
const (
	EventWelcome = "session:welcome"
	EventState   = "game:state"
	EventPong    = "pong"
)

// envelope is the wire shape of every server message
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// clientMessage is what clients send. Only "input" and "ping" are
// understood.
type clientMessage struct {
	Type   string        `json:"type"`
	Input  *input.Sample `json:"input,omitempty"`
	SentAt int64         `json:"sentAt,omitempty"`
}

type welcomeMessage struct {
	SessionID string     `json:"sessionId"`
	TickRate  int        `json:"tickRate"`
	Screen    [2]float64 `json:"screen"`
}

type pongMessage struct {
	ServerTime int64 `json:"serverTime"`
	ClientTime int64 `json:"clientTime"`
}

type wsClient struct {
	conn   *websocket.Conn
	ip     string
	send   chan []byte
	inputs *rate.Limiter
}

// Hub tracks websocket clients, pushes snapshots to them and forwards their
// input to the engine.
type Hub struct {
	engine   EngineInterface
	log      *zap.Logger
	upgrader websocket.Upgrader
	conns    *ConnLimiter
	limit    int

	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	lastTick uint64
}

// NewHub creates a hub. Nothing runs until Run is called.
func NewHub(engine EngineInterface, origins *OriginChecker, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &Hub{
		engine:  engine,
		log:     log,
		conns:   NewConnLimiter(MaxWSConnectionsPerIP),
		limit:   MaxWSConnectionsTotal,
		clients: make(map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			h.log.Warn("websocket origin rejected", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run pushes fresh snapshots until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()
	defer h.CloseAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcastLatest()
		}
	}
}

// broadcastLatest sends the newest snapshot if it has not been sent yet
func (h *Hub) broadcastLatest() {
	if h.ClientCount() == 0 {
		return
	}
	snap, ok := h.engine.Snapshot()
	if !ok {
		return
	}
	h.mu.Lock()
	if snap.TickNumber == h.lastTick {
		h.mu.Unlock()
		return
	}
	h.lastTick = snap.TickNumber
	h.mu.Unlock()

	msg, err := json.Marshal(envelope{Event: EventState, Data: snap})
	if err != nil {
		h.log.Error("snapshot encode failed", zap.Error(err))
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every client. A client whose queue is full
// misses this message.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			countWSMessage("dropped")
		}
	}
}

// sendTo queues msg for one client if it is still connected
func (h *Hub) sendTo(c *wsClient, event string, data interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		countWSMessage("dropped")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

// register adds c unless the hub already holds limit clients. This is the
// authoritative total check; the one in HandleWebSocket is only early.
func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	if len(h.clients) >= h.limit {
		n := len(h.clients)
		h.mu.Unlock()
		h.log.Warn("websocket rejected: total limit reached", zap.Int("clients", n))
		RecordConnectionRejected("ws_total_limit")
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	UpdateWSConnections(n)
	h.log.Info("client connected", zap.String("ip", c.ip), zap.Int("clients", n))
	return true
}

// unregister removes c once; its writer sees the closed queue and closes
// the connection.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	h.conns.Release(c.ip)
	UpdateWSConnections(n)
	h.log.Info("client disconnected", zap.String("ip", c.ip), zap.Int("clients", n))
}

// HandleWebSocket upgrades the request and serves the connection until the
// client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if n := h.ClientCount(); n >= h.limit {
		h.log.Warn("websocket rejected: total limit reached", zap.Int("clients", n))
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.conns.Acquire(ip) {
		h.log.Warn("websocket rejected: per-IP limit reached", zap.String("ip", ip))
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.log.Debug("websocket upgrade failed", zap.String("ip", ip), zap.Error(err))
		h.conns.Release(ip)
		return
	}

	c := &wsClient{
		conn:   conn,
		ip:     ip,
		send:   make(chan []byte, sendBufferSize),
		inputs: rate.NewLimiter(InputMessagesPerSec, InputMessagesPerSec/4),
	}
	if !h.register(c) {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		h.conns.Release(ip)
		return
	}
	go h.writePump(c)

	tuning := h.engine.Tuning()
	h.sendTo(c, EventWelcome, welcomeMessage{
		SessionID: h.engine.Stats().SessionID,
		TickRate:  tuning.Sim.TickRate,
		Screen:    [2]float64{tuning.Camera.ScreenWidth, tuning.Camera.ScreenHeight},
	})
	if snap, ok := h.engine.Snapshot(); ok {
		h.sendTo(c, EventState, snap)
	}

	h.readPump(c)
}

func (h *Hub) readPump(c *wsClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.String("ip", c.ip), zap.Error(err))
			}
			return
		}
		countWSMessage("received")

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.log.Debug("discarding malformed message", zap.String("ip", c.ip), zap.Error(err))
			continue
		}

		switch msg.Type {
		case "input":
			if msg.Input == nil {
				continue
			}
			if !c.inputs.Allow() {
				countWSMessage("dropped")
				continue
			}
			h.engine.SubmitInput(*msg.Input)
		case "ping":
			h.sendTo(c, EventPong, pongMessage{ServerTime: time.Now().UnixMilli(), ClientTime: msg.SentAt})
		default:
			h.log.Debug("unknown message type", zap.String("ip", c.ip), zap.String("type", msg.Type))
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			countWSMessage("sent")
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
