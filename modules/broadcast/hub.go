package broadcast

import (
	"log"
	"sync"
	"time"
)

const (
	// sendBuffer bounds the per-client outbound queue. A client that cannot
	// drain it loses frames instead of stalling the room.
	sendBuffer = 64

	writeWait = 10 * time.Second
)

// Conn is the write side of one client channel. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// textMessage mirrors websocket.TextMessage without importing the transport
// package here.
const textMessage = 1

// Membership resolves a room to its member session ids at a single instant.
// Backed by the relay registry; the hub keeps no room state of its own.
type Membership interface {
	Members(roomCode string) []string
}

// Client is one registered connection with its buffered outbound queue.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	once sync.Once
}

// NewClient wraps a connection for hub registration.
func NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// writePump serializes all writes to the connection. It exits when the send
// channel closes or a write fails; either way the read loop notices on its
// own and tears the session down.
func (c *Client) writePump() {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(textMessage, data); err != nil {
			log.Printf("[hub] write to %s failed: %v", c.ID, err)
			return
		}
	}
}

// Hub fans frames out to the connections of a room. Room membership always
// comes from the registry, so there is no second bookkeeping to drift.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	membership Membership
}

// NewHub creates a hub over the given membership source.
func NewHub(membership Membership) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		membership: membership,
	}
}

// Register adds a client and starts its writer.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	go client.writePump()
	log.Printf("[hub] client %s registered", client.ID)
}

// Unregister removes a client and releases its writer.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	client, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		client.close()
	}
	h.mu.Unlock()

	if ok {
		log.Printf("[hub] client %s unregistered", id)
	}
}

// BroadcastToRoom delivers data to every connection currently in the room,
// per a point-in-time membership snapshot. A slow client's full buffer or a
// missing connection is skipped; nothing here fails the caller. Returns the
// number of deliveries enqueued.
func (h *Hub) BroadcastToRoom(roomCode string, data []byte) int {
	members := h.membership.Members(roomCode)
	if len(members) == 0 {
		return 0
	}

	delivered := 0
	h.mu.RLock()
	for _, id := range members {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case client.send <- data:
			delivered++
		default:
			log.Printf("[hub] dropping frame for slow client %s in room %s", id, roomCode)
		}
	}
	h.mu.RUnlock()

	log.Printf("[hub] room broadcast: room=%s delivered=%d/%d", roomCode, delivered, len(members))
	return delivered
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll releases every client, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		client.close()
	}
	h.clients = make(map[string]*Client)
}
