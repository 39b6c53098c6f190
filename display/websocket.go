package musicio

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	StatusInterval = time.Second // status push to each client
	clientBuffer   = 64          // queued messages before a slow client misses some
	writeWait      = 2 * time.Second
)

// Message is the envelope in both directions: {"event": "...", "data": {...}}
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one dashboard connection with its own writer goroutine
type Client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub fans dashboard events out to every client
type Hub struct {
	MU      sync.Mutex
	clients map[*Client]struct{}
	OnCount func(int) // optional, called with the client count on every change
	Missed  uint64    // messages a slow client never got
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) add(c *Client) {
	h.MU.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.MU.Unlock()
	h.count(n)
}

func (h *Hub) remove(c *Client) {
	h.MU.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.MU.Unlock()
	h.count(n)
}

func (h *Hub) count(n int) {
	if h.OnCount != nil {
		h.OnCount(n)
	}
}

func (h *Hub) Len() int {
	h.MU.Lock()
	defer h.MU.Unlock()
	return len(h.clients)
}

// Broadcast never blocks, it returns how many clients got the message
func (h *Hub) Broadcast(event string, data any) int {
	msg, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		slog.Error("Could not encode dashboard event", slog.String("event", event), slog.Any("error", err))
		return 0
	}

	h.MU.Lock()
	defer h.MU.Unlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
			h.Missed++
			slog.Debug("Client too slow, message skipped", slog.String("event", event))
		}
	}
	return sent
}

// Close disconnects every client, hijacked connections are not closed by http.Server.Shutdown
func (h *Hub) Close() {
	h.MU.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.MU.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// WebsocketHandler serves one dashboard connection until either side hangs up
func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &Client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}

	hello, _ := json.Marshal(outbound{Event: EventConnected, Data: map[string]string{"status": "ok"}})
	c.send <- hello
	v.Hub.add(c)
	slog.Info("Client connected to visualizer", slog.String("remote", r.RemoteAddr))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v.writePump(c)
	}()

	v.readPump(c)

	v.Hub.remove(c)
	c.close()
	wg.Wait()
	slog.Info("Client disconnected from visualizer", slog.String("remote", r.RemoteAddr))
}

func (v *View) writePump(c *Client) {
	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(outbound{Event: EventStatus, Data: v.StatusData()}); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (v *View) readPump(c *Client) {
	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Websocket read ended", slog.Any("error", err))
			}
			return
		}
		v.HandleClientMessage(m)
	}
}

type position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p position) or(def float64) (float64, float64) {
	x, y := def, def
	if p.X != nil {
		x = *p.X
	}
	if p.Y != nil {
		y = *p.Y
	}
	return x, y
}

// HandleClientMessage acts on one event sent by a dashboard
func (v *View) HandleClientMessage(m Message) {
	switch m.Event {
	case EventJoystickInput:
		var data any
		if err := json.Unmarshal(m.Data, &data); err != nil {
			slog.Warn("Bad joystick input", slog.Any("error", err))
			return
		}
		v.Hub.Broadcast(EventJoystick, data)

	case EventHandRaised, EventHandRaisedLeft:
		var p position
		if len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, &p); err != nil {
				slog.Warn("Bad hand position", slog.Any("error", err))
				return
			}
		}
		x, y := p.or(0.5)
		spawn := EventSpawnCollectible
		if m.Event == EventHandRaisedLeft {
			spawn = EventSpawnEnemy
		}
		slog.Info("Hand raised", slog.String("event", m.Event), slog.Float64("x", x), slog.Float64("y", y))
		v.Hub.Broadcast(spawn, map[string]any{"x": x, "y": y, "timestamp": v.Now()})

	case EventGameStarted:
		v.Game.Start("dashboard")

	case EventGameOver:
		var data struct {
			Score int `json:"score"`
		}
		if len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, &data); err != nil {
				slog.Warn("Bad game over payload", slog.Any("error", err))
				return
			}
		}
		if _, err := v.Game.Over(data.Score); err != nil {
			slog.Error("Game over not completed", slog.Any("error", err))
		}

	case EventProximityInvite:
		var data struct {
			Invite bool `json:"invite"`
		}
		if err := json.Unmarshal(m.Data, &data); err != nil {
			slog.Warn("Bad invite payload", slog.Any("error", err))
			return
		}
		v.SetInvite(data.Invite)

	case EventReset:
		v.Orch.Reset()
		v.Hub.Broadcast(EventStatus, v.StatusData())

	default:
		slog.Debug("Unknown dashboard event", slog.String("event", m.Event))
	}
}
