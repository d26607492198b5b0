package ws

import (
	"sync"

	"task_manager/internal/domain"
	"task_manager/internal/logger"
)

// Hub tracks connected clients by user id and fans task events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	ConnectedClients.Inc()
	logger.Debug("ws client registered", "user_id", c.UserID)
}

// Unregister removes c and closes its send queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := set[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	// sends happen under RLock, so none is in flight here
	close(c.Send)
	h.mu.Unlock()

	ConnectedClients.Dec()
	logger.Debug("ws client unregistered", "user_id", c.UserID)
}

// Publish delivers ev to the connections of its recipients. It never blocks:
// a client whose queue is full misses the event.
func (h *Hub) Publish(ev domain.TaskEvent) {
	msg, err := encode(ev.Type, ev.Payload)
	if err != nil {
		logger.Error("encode task event", "type", ev.Type, "error", err)
		return
	}
	EventsPublished.WithLabelValues(ev.Type).Inc()
	h.deliver(ev.UserIDs, msg)
}

func (h *Hub) deliver(userIDs []string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			select {
			case c.Send <- msg:
			default:
				EventsDropped.WithLabelValues("queue_full").Inc()
				logger.Warn("ws send queue full, dropping event", "user_id", uid)
			}
		}
	}
}

// sendTo queues msg for a single client unless it has been unregistered.
func (h *Hub) sendTo(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.UserID][c]; !ok {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
