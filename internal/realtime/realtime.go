// Package realtime fans chat replies out to every websocket joined to a conversation room.
package realtime

import (
	"context"
	"strconv"
	"sync"
)

// Handler receives a published payload. It runs on the publisher's goroutine for Hub and
// on the consumer goroutine for NATS, so it must not block.
type Handler func(payload []byte)

type Subscription interface {
	Stop()
}

type Broadcaster interface {
	Publish(ctx context.Context, room string, payload []byte) error
	Subscribe(ctx context.Context, room string, h Handler) (Subscription, error)
	Close() error
}

func RoomName(conversationID int64) string {
	return "chat_" + strconv.FormatInt(conversationID, 10)
}

// Hub is the in-process Broadcaster used by a single server instance.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*hubSub]struct{}
}

type hubSub struct {
	hub  *Hub
	room string
	h    Handler
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*hubSub]struct{})}
}

func (h *Hub) Publish(_ context.Context, room string, payload []byte) error {
	h.mu.RLock()
	subs := make([]*hubSub, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.h(payload)
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, room string, handler Handler) (Subscription, error) {
	s := &hubSub{hub: h, room: room, h: handler}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*hubSub]struct{})
	}
	h.rooms[room][s] = struct{}{}
	return s, nil
}

// Members returns the number of live subscriptions in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms = make(map[string]map[*hubSub]struct{})
	return nil
}

func (s *hubSub) Stop() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		members := s.hub.rooms[s.room]
		delete(members, s)
		if len(members) == 0 {
			delete(s.hub.rooms, s.room)
		}
	})
}
