package liveevents

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

// Event carries the complete snapshot of one collection after a change.
type Event struct {
	Collection  string                     `json:"collection"`
	Snapshot    map[string]json.RawMessage `json:"snapshot"`
	PublishedAt time.Time                  `json:"published_at"`
}

// Hub fans snapshots out to the subscribers of each collection. Delivery is latest-wins:
// a subscriber that has not drained its channel gets the newer snapshot in place of the
// pending one.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]*stream
	closed  bool
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

type Subscription struct {
	hub  *Hub
	key  string
	id   uint64
	mu   sync.Mutex
	ch   chan Event
	done bool
	once sync.Once
}

var ErrHubClosed = errors.New("hub_closed")

func NewHub() *Hub {
	return &Hub{streams: make(map[string]*stream)}
}

func (h *Hub) Publish(key string, event Event) {
	if h == nil {
		return
	}
	key = strings.TrimSpace(key)
	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	for _, sub := range stream.subs {
		sub.Offer(event)
	}
}

// HasSubscribers lets publishers skip building snapshots nobody reads.
func (h *Hub) HasSubscribers(key string) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	stream := h.streams[strings.TrimSpace(key)]
	h.mu.RUnlock()
	if stream == nil {
		return false
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs) > 0
}

func (h *Hub) Subscribe(key string) (*Subscription, error) {
	if h == nil {
		return nil, errors.New("hub_unavailable")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("invalid_stream_key")
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	current := h.streams[key]
	if current == nil {
		current = &stream{subs: make(map[uint64]*Subscription)}
		h.streams[key] = current
	}
	defer h.mu.Unlock()

	current.mu.Lock()
	id := current.nextID
	current.nextID++
	sub := &Subscription{
		hub: h,
		key: key,
		id:  id,
		ch:  make(chan Event, 1),
	}
	current.subs[id] = sub
	current.mu.Unlock()

	return sub, nil
}

// Close ends every subscription; their channels are closed.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.closed = true
	streams := h.streams
	h.streams = make(map[string]*stream)
	h.mu.Unlock()

	for _, stream := range streams {
		stream.mu.Lock()
		for _, sub := range stream.subs {
			sub.finish()
		}
		stream.subs = nil
		stream.mu.Unlock()
	}
}

func (h *Hub) unsubscribe(key string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stream := h.streams[key]
	if stream == nil {
		return
	}
	stream.mu.Lock()
	delete(stream.subs, id)
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, key)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

// Offer replaces any undelivered event with this one. It never blocks.
func (s *Subscription) Offer(event Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- event
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.key, s.id)
		s.finish()
	})
}

func (s *Subscription) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
