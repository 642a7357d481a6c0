package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Push message types.
const (
	MsgConnectionConfirmed = "connection_confirmed"
	MsgContentUpdate       = "content_update"
	MsgServerShutdown      = "server_shutdown"
)

const writeWait = 5 * time.Second

// Message is sent to every connected viewer.
type Message struct {
	Type string `json:"type"`
	// unix milliseconds
	Timestamp int64 `json:"timestamp"`
}

func newMessage(typ string) Message {
	return Message{Type: typ, Timestamp: time.Now().UnixMilli()}
}

var upgrader = websocket.Upgrader{
	// preview page is served from another port
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	// gorilla connections support one concurrent writer
	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

func (c *client) write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// hub keeps set of push channel clients.
type hub struct {
	pingInterval time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub(pingInterval time.Duration, log *zap.Logger) *hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &hub{pingInterval: pingInterval, log: log, clients: make(map[*client]struct{})}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Unable to upgrade connection", zap.Error(err))
		return
	}
	c := &client{conn: conn, done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("Viewer connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("viewers", count))

	data, _ := json.Marshal(newMessage(MsgConnectionConfirmed))
	if err := c.write(data); err != nil {
		h.remove(c)
		return
	}

	go h.ping(c)

	// viewers only send keepalives, reading is needed to process control frames
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.log.Debug("Viewer connection broken", zap.Error(err))
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	}
	h.remove(c)
}

func (h *hub) ping(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// broadcast sends message to snapshot of clients, failed ones are pruned
// afterwards. Returns number of clients reached.
func (h *hub) broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("Unable to encode push message", zap.Error(err))
		return 0
	}

	clients := h.snapshot()
	var dead []*client
	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.log.Debug("Dropping viewer", zap.String("message", msg.Type), zap.Error(err))
			dead = append(dead, c)
		}
	}
	if len(dead) > 0 {
		h.mu.Lock()
		for _, c := range dead {
			delete(h.clients, c)
		}
		h.mu.Unlock()
		for _, c := range dead {
			c.close()
		}
	}
	return len(clients) - len(dead)
}

func (h *hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// shutdown notifies viewers and closes every channel, new connections are
// refused afterwards.
func (h *hub) shutdown() {
	h.broadcast(newMessage(MsgServerShutdown))

	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	clear(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.wmu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), time.Now().Add(writeWait))
		c.wmu.Unlock()
		c.close()
	}
}
