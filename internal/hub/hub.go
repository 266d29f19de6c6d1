// Package hub implements the history event broker.
// It is transport-agnostic: subscribers register, receive events through a
// non-blocking Send, and the history pipeline publishes. Delivery order
// across subscribers is unspecified.
package hub

import (
	"log/slog"
	"sync"

	"go.klb.dev/clipkeep/internal/metrics"
	"go.klb.dev/clipkeep/internal/model"
)

// EventType names what happened to the history.
type EventType string

const (
	// RecordAdded carries a newly stored or refreshed record with its id.
	RecordAdded    EventType = "record.added"
	RecordDeleted  EventType = "record.deleted"
	RecordUpdated  EventType = "record.updated"
	HistoryCleared EventType = "history.cleared"
)

// Event is a history change delivered to subscribers.
type Event struct {
	Type   EventType     `json:"type"`
	Record *model.Record `json:"record,omitempty"`
	ID     int64         `json:"id,omitempty"`
}

// Subscriber is anything that can receive events from the hub.
type Subscriber interface {
	ID() string
	// Send delivers an event to the subscriber. Must be non-blocking.
	Send(Event)
}

// Hub routes history events to all registered subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Subscribe adds s. A subscriber with the same ID is replaced.
func (h *Hub) Subscribe(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	total := len(h.subs)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(total))
	slog.Info("subscriber registered", "subscriber", s.ID(), "total", total)
}

// Unsubscribe removes s.
func (h *Hub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	total := len(h.subs)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(total))
	slog.Info("subscriber unregistered", "subscriber", s.ID(), "total", total)
}

// Publish fans ev out to every subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Send(ev)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ChanSubscriber buffers events on a channel for a consumer goroutine.
type ChanSubscriber struct {
	id string
	ch chan Event
}

// NewChanSubscriber returns a subscriber with a buffer of size events.
func NewChanSubscriber(id string, size int) *ChanSubscriber {
	return &ChanSubscriber{id: id, ch: make(chan Event, size)}
}

func (c *ChanSubscriber) ID() string { return c.id }

// Events returns the receive side of the buffer.
func (c *ChanSubscriber) Events() <-chan Event { return c.ch }

// Send implements Subscriber. A full buffer drops the event.
func (c *ChanSubscriber) Send(ev Event) {
	select {
	case c.ch <- ev:
	default:
		slog.Warn("subscriber channel full, dropping", "subscriber", c.id, "event", ev.Type)
	}
}
