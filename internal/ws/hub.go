package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

type activation struct {
	client    *Client
	profileID uint
}

// Hub tracks connected sessions keyed by (user id, active profile id).
// Delivery is fire-and-forget: there is no backlog and no redelivery, a
// disconnected client recovers state on its next query.
type Hub struct {
	mu sync.RWMutex
	// user_id -> active_profile_id -> client
	sessions map[uint]map[uint]*Client

	register   chan *Client
	unregister chan *Client
	activate   chan activation
	logger     *zap.Logger
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions:   make(map[uint]map[uint]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		activate:   make(chan activation),
		logger:     logger,
	}
}

// Run processes session registration until the process exits
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case a := <-h.activate:
			h.rekey(a.client, a.profileID)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[c.userID] == nil {
		h.sessions[c.userID] = make(map[uint]*Client)
	}
	// A reconnect for the same (user, profile) replaces the old session.
	if old := h.sessions[c.userID][c.profileID]; old != nil {
		old.close()
	}
	h.sessions[c.userID][c.profileID] = c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions := h.sessions[c.userID]; sessions != nil {
		if sessions[c.profileID] == c {
			delete(sessions, c.profileID)
			c.close()
		}
		if len(sessions) == 0 {
			delete(h.sessions, c.userID)
		}
	}
}

// rekey moves a session to a new active profile and tells the client to
// re-filter its cached notification state immediately.
func (h *Hub) rekey(c *Client, profileID uint) {
	h.mu.Lock()
	if sessions := h.sessions[c.userID]; sessions != nil && sessions[c.profileID] == c {
		delete(sessions, c.profileID)
	}
	c.profileID = profileID
	if h.sessions[c.userID] == nil {
		h.sessions[c.userID] = make(map[uint]*Client)
	}
	h.sessions[c.userID][profileID] = c
	h.mu.Unlock()

	c.sendEvent(Event{Event: EventProfileActivated, ProfileID: profileID})
}

// Emit delivers an event to every connected session of a user. Sessions with a
// full send buffer are skipped rather than blocked on.
func (h *Hub) Emit(userID uint, event string, payload interface{}) {
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		h.logger.Warn("dropping undeliverable socket event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("socket send buffer full, dropping event",
				zap.Uint("user_id", userID), zap.String("event", event))
		}
		c.refresh.Trigger()
	}
}
