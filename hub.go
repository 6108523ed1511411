package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"emberhollow/client/internal/hooks"
	"emberhollow/client/internal/session"
	"emberhollow/client/logging"
)

const writeWait = 10 * time.Second

// Hub fans session snapshots and game events out to WebSocket subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	publisher   logging.Publisher
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewHub(publisher logging.Publisher) *Hub {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		publisher:   publisher,
	}
}

// Subscribe registers a connection and greets it with the current snapshot.
// The returned id is used to drop the subscriber later.
func (h *Hub) Subscribe(conn *websocket.Conn, snapshot *session.Session) (string, error) {
	id := fmt.Sprintf("sub-%d", h.nextID.Add(1))
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()

	hello := helloMessage{
		Type:         "hello",
		SubscriberID: id,
		Session:      snapshot,
		ServerTime:   time.Now().UnixMilli(),
	}
	if err := h.send(id, sub, hello); err != nil {
		return "", err
	}
	return id, nil
}

// Unsubscribe drops a subscriber and closes its connection.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// SubscriberCount reports the number of live connections.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// BroadcastSession pushes a session snapshot to every subscriber. A failed
// write drops that subscriber.
func (h *Hub) BroadcastSession(snapshot *session.Session) {
	h.broadcast(sessionMessage{
		Type:       "session",
		Session:    snapshot,
		ServerTime: time.Now().UnixMilli(),
	})
}

// BroadcastEvent pushes one game event to every subscriber.
func (h *Hub) BroadcastEvent(event hooks.GameEvent) {
	h.broadcast(eventMessage{
		Type:       "event",
		Event:      event,
		ServerTime: time.Now().UnixMilli(),
	})
}

func (h *Hub) broadcast(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.publisher.Publish(context.Background(), logging.Event{
			Type:     "broadcast_encode_failed",
			Severity: logging.SeverityError,
			Category: logging.CategorySystem,
			Payload:  map[string]any{"error": err.Error()},
		})
		return
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			h.publisher.Publish(context.Background(), logging.Event{
				Type:     "subscriber_dropped",
				Severity: logging.SeverityWarn,
				Category: logging.CategorySystem,
				Payload:  map[string]any{"subscriber": id, "error": err.Error()},
			})
			h.Unsubscribe(id)
		}
	}
}

func (h *Hub) send(id string, sub *subscriber, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", id, err)
	}
	sub.mu.Lock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = sub.conn.WriteMessage(websocket.TextMessage, data)
	sub.mu.Unlock()
	if err != nil {
		h.Unsubscribe(id)
		return fmt.Errorf("send to %s: %w", id, err)
	}
	return nil
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
}
