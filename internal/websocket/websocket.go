package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/abrezinsky/derbyrush/internal/logger"
	"github.com/abrezinsky/derbyrush/internal/models"
	"github.com/abrezinsky/derbyrush/pkg/metrics"
)

// Inbound message types, shared with the mobile and display clients.
const (
	evtJoin       = "join"
	evtTap        = "tap"
	evtPlaceBet   = "place-bet"
	evtGetRacers  = "get-racers"
	evtStartRace  = "start-race"
	evtLockRacers = "lock-racers"
	evtResetGame  = "reset-game"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Mobile clients connect from LAN addresses
	},
}

// GameDispatcher is the game engine surface the hub feeds inbound client
// events into. Every call is serialized by the engine's own event loop.
type GameDispatcher interface {
	Join(id, name, role string) error
	Leave(id string)
	Tap(id string)
	PlaceBet(id string, wager models.Wager) error
	LockRacers()
	StartRace() error
	ResetGame()
	SendRacers(id string)
}

// Hub maintains the set of active clients and fans game-state messages out
// to them. Each connection gets an ephemeral uuid that doubles as the
// participant id, so disconnect cleanup uses the same key as join.
type Hub struct {
	log        logger.Logger
	game       GameDispatcher
	mx         *metrics.Metrics
	clients    map[string]*Client
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// Client is a middleman between one websocket connection and the hub
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// inboundMessage is the envelope clients send; the payload stays raw until
// the type is known.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, game GameDispatcher, mx *metrics.Metrics) *Hub {
	return &Hub{
		log:        log,
		game:       game,
		mx:         mx,
		clients:    make(map[string]*Client),
		broadcast:  make(chan models.WSMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetGame injects the game engine after construction. The hub and the
// engine reference each other (engine broadcasts through the hub, the hub
// routes events into the engine), so one side is wired late. Must be called
// before any client connects.
func (h *Hub) SetGame(game GameDispatcher) {
	h.game = game
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration and message fan-out
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mutex.Unlock()
			h.mx.ClientConnected(1)
			h.log.Debug("Client connected", "client_id", client.id, "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
				h.mx.ClientConnected(-1)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "client_id", client.id, "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected clients. Delivery is
// best-effort; clients that cannot keep up are dropped.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.broadcast <- models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}

// SendTo sends a message to a single client. Unknown ids and full send
// buffers are silently ignored.
func (h *Hub) SendTo(clientID, msgType string, payload interface{}) {
	h.mutex.RLock()
	client, ok := h.clients[clientID]
	h.mutex.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- models.WSMessage{Type: msgType, Payload: payload}:
	default:
	}
}

// readPump pumps messages from the websocket connection into the game engine
func (c *Client) readPump() {
	defer func() {
		// Disconnect is just another game event; the engine removes the
		// participant and broadcasts the roster before the next event runs.
		if c.hub.game != nil {
			c.hub.game.Leave(c.id)
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Debug("Dropping malformed message", "client_id", c.id, "error", err)
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// handleMessage routes one inbound client event into the game engine.
// Rejections fail soft: late or invalid events are logged and ignored, only
// join failures are reported back to the sender.
func (h *Hub) handleMessage(c *Client, msg inboundMessage) {
	if h.game == nil {
		h.log.Warn("Dropping message, no game engine wired", "type", msg.Type)
		return
	}

	switch msg.Type {
	case evtJoin:
		var req models.JoinRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.log.Debug("Malformed join payload", "client_id", c.id, "error", err)
			return
		}
		if err := h.game.Join(c.id, req.Name, req.Mode); err != nil {
			h.SendTo(c.id, "error", map[string]string{"message": err.Error()})
		}

	case evtTap:
		h.game.Tap(c.id)

	case evtPlaceBet:
		var wager models.Wager
		if err := json.Unmarshal(msg.Payload, &wager); err != nil {
			h.log.Debug("Malformed wager payload", "client_id", c.id, "error", err)
			return
		}
		if err := h.game.PlaceBet(c.id, wager); err != nil {
			h.log.Debug("Bet rejected", "client_id", c.id, "error", err)
		}

	case evtGetRacers:
		h.game.SendRacers(c.id)

	case evtStartRace:
		if err := h.game.StartRace(); err != nil {
			h.log.Info("Start race rejected", "client_id", c.id, "error", err)
		}

	case evtLockRacers:
		h.game.LockRacers()

	case evtResetGame:
		h.game.ResetGame()

	default:
		h.log.Debug("Unknown message type", "client_id", c.id, "type", msg.Type)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
