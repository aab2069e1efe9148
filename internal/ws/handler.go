package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware
	},
}

// Client is one spectator attached to a match room.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	matchID string
	send    chan []byte
}

// Hub fans frames out to the spectators of each match.
type Hub struct {
	rooms      map[string]map[*Client]struct{} // matchID -> clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations until ctx is done, then drops every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for matchID, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
				delete(h.rooms, matchID)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.matchID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.matchID] = room
			}
			room[c] = struct{}{}
			size := len(room)
			h.mu.Unlock()
			h.log.Debug("spectator joined", zap.String("match_id", c.matchID), zap.Int("room_size", size))

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.matchID]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
				}
				if len(room) == 0 {
					delete(h.rooms, c.matchID)
				}
			}
			h.mu.Unlock()
			h.log.Debug("spectator left", zap.String("match_id", c.matchID))
		}
	}
}

// Broadcast queues data for every spectator of matchID. Slow clients miss
// frames rather than block the caller.
func (h *Hub) Broadcast(matchID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[matchID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("spectator buffer full, dropping frame", zap.String("match_id", matchID))
		}
	}
}

// BroadcastFrame extracts the match ID from an encoded frame and broadcasts it.
func (h *Hub) BroadcastFrame(payload []byte) error {
	var head struct {
		MatchID string `json:"match_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return err
	}
	if head.MatchID == "" {
		return errMissingMatchID
	}
	h.Broadcast(head.MatchID, payload)
	return nil
}

func (h *Hub) RoomSize(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[matchID])
}

// ServeMatch upgrades the request and attaches it to the room of matchID.
// initial, if non-nil, is the first message the spectator receives.
func (h *Hub) ServeMatch(w http.ResponseWriter, r *http.Request, matchID string, initial []byte) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		hub:     h,
		conn:    conn,
		matchID: matchID,
		send:    make(chan []byte, sendBuffer),
	}
	if initial != nil {
		c.send <- initial
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errHubClosed
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// readPump only services control frames; spectators never send commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("spectator read error", zap.String("match_id", c.matchID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Debug("spectator write error", zap.String("match_id", c.matchID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
