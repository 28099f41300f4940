package ws

import (
	"log/slog"
	"sync"
)

// Subscriber abstracts a realtime connection.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub is the connection registry: each identity channel holds every connection joined as that
// identity, so one user may be online from several devices.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[Subscriber]struct{}
	log      *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{channels: make(map[string]map[Subscriber]struct{}), log: logger}
}

// Register adds sub to identityID's channel.
func (h *Hub) Register(identityID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[identityID]
	if !ok {
		subs = make(map[Subscriber]struct{})
		h.channels[identityID] = subs
	}
	subs[sub] = struct{}{}
}

// Unregister removes sub from identityID's channel.
func (h *Hub) Unregister(identityID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(identityID, sub)
}

func (h *Hub) remove(identityID string, sub Subscriber) bool {
	subs, ok := h.channels[identityID]
	if !ok {
		return false
	}
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.channels, identityID)
	}
	return true
}

// Publish sends payload to every connection in identityID's channel except the given one and
// returns the number of successful deliveries. Connections that fail are dropped and closed.
func (h *Hub) Publish(identityID string, payload []byte, except Subscriber) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.channels[identityID]))
	for sub := range h.channels[identityID] {
		if except != nil && sub == except {
			continue
		}
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(payload); err != nil {
			h.mu.Lock()
			removed := h.remove(identityID, sub)
			h.mu.Unlock()
			if removed {
				h.log.Warn("dropping realtime connection", "identity_id", identityID, "error", err)
				sub.Close()
			}
			continue
		}
		delivered++
	}
	return delivered
}

// Count returns the number of connections joined as identityID.
func (h *Hub) Count(identityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[identityID])
}

// Connections returns the number of joined connections across all identities.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.channels {
		n += len(subs)
	}
	return n
}
