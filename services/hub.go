package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quizrave/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MessageStateSync   = "attempt_state_sync"
	MessageTimerUpdate = "timer_update"
	MessageTimeExpired = "time_expired"
	MessagePong        = "pong"

	writeWait = 10 * time.Second
)

// AttemptStateProvider loads the snapshot sent to a client on connect and
// on request.
type AttemptStateProvider interface {
	AttemptState(ctx context.Context, attemptID, userID uint) (*AttemptState, error)
}

// Hub fans attempt events out to the websocket clients watching that
// attempt and counts down the remaining time of timed attempts.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	states     AttemptStateProvider
	log        *logger.Logger
	tick       time.Duration
	now        func() time.Time
}

type Client struct {
	hub       *Hub
	id        string
	socket    *websocket.Conn
	send      chan []byte
	attemptID uint
	userID    uint
	deadline  *time.Time

	timerDone chan struct{}
	stopOnce  sync.Once
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(states AttemptStateProvider, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		states:     states,
		log:        log.With("component", "hub"),
		tick:       time.Second,
		now:        time.Now,
	}
}

// SetTick changes the countdown interval. Call before Run.
func (h *Hub) SetTick(d time.Duration) {
	h.tick = d
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client registered", "client_id", client.id, "attempt_id", client.attemptID, "clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client unregistered", "client_id", client.id, "attempt_id", client.attemptID, "clients", total)

		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Publish implements Notifier.
func (h *Hub) Publish(attemptID uint, eventType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		h.log.Error("marshal event", "type", eventType, "error", err)
		return
	}

	var slow []*Client
	sent := 0
	h.mutex.RLock()
	for client := range h.clients {
		if client.attemptID != attemptID {
			continue
		}
		if eventType == EventAttemptCompleted {
			client.stopCountdown()
		}
		select {
		case client.send <- data:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		h.log.Warn("client send buffer full, dropping", "client_id", client.id, "attempt_id", attemptID)
		go h.UnregisterClient(client)
	}
	h.log.Debug("event published", "type", eventType, "attempt_id", attemptID, "clients", sent)
}

// ConnectedClients reports how many clients watch attemptID.
func (h *Hub) ConnectedClients(attemptID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for client := range h.clients {
		if client.attemptID == attemptID {
			n++
		}
	}
	return n
}

// RegisterClient attaches conn to the attempt described by state. The
// client receives the state immediately.
func (h *Hub) RegisterClient(conn *websocket.Conn, state *AttemptState) *Client {
	client := &Client{
		hub:       h,
		id:        uuid.NewString(),
		socket:    conn,
		send:      make(chan []byte, 256),
		attemptID: state.AttemptID,
		userID:    state.UserID,
		timerDone: make(chan struct{}),
	}
	if state.Result == nil {
		client.deadline = state.Deadline
	}
	if data, err := json.Marshal(Message{Type: MessageStateSync, Payload: state}); err == nil {
		client.send <- data
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// sendTo queues data for one client unless it has been unregistered.
func (h *Hub) sendTo(client *Client, data []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read", "client_id", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Debug("bad client message", "client_id", c.id, "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	var ticks <-chan time.Time
	if c.deadline != nil {
		ticker := time.NewTicker(c.hub.tick)
		defer ticker.Stop()
		ticks = ticker.C
	}
	defer c.socket.Close()
	stopped := c.timerDone

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case <-stopped:
			ticks = nil
			stopped = nil

		case <-ticks:
			select {
			case <-c.timerDone:
				ticks = nil
				continue
			default:
			}
			left := secondsLeft(*c.deadline, c.hub.now())
			msg := Message{Type: MessageTimerUpdate, Payload: map[string]interface{}{"time_left": left}}
			if left == 0 {
				msg = Message{Type: MessageTimeExpired, Payload: map[string]interface{}{"attempt_id": c.attemptID}}
				ticks = nil
			}
			data, _ := json.Marshal(msg)
			if err := c.write(data); err != nil {
				return
			}
		}
	}
}

// stopCountdown ends the timer frames for a client whose attempt is over.
// Publish calls it before queuing the completion event, so no timer frame
// follows that event.
func (c *Client) stopCountdown() {
	c.stopOnce.Do(func() { close(c.timerDone) })
}

func (c *Client) write(data []byte) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.socket.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(Message{Type: MessagePong, Payload: "pong"})
		c.hub.sendTo(c, data)

	case "request_state":
		state, err := c.hub.states.AttemptState(context.Background(), c.attemptID, c.userID)
		if err != nil {
			c.hub.log.Warn("load attempt state", "attempt_id", c.attemptID, "error", err)
			return
		}
		data, err := json.Marshal(Message{Type: MessageStateSync, Payload: state})
		if err != nil {
			return
		}
		c.hub.sendTo(c, data)

	default:
		c.hub.log.Debug("unknown message type", "type", msg.Type, "client_id", c.id)
	}
}
