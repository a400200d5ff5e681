package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis Pub/Sub channel carrying lab events across
// instances.
const EventsChannel = "robolab:events"

// Event is the payload broadcast over Redis and WebSocket. An empty UserID
// means broadcast; otherwise only that user's connection receives it.
type Event struct {
	Type      string      `json:"type"` // "notification", "inventory", "request"
	UserID    string      `json:"user_id,omitempty"`
	Title     string      `json:"title,omitempty"`
	Message   string      `json:"message,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// EventConn is the minimal interface a WebSocket connection must satisfy.
type EventConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// EventHub fans lab events out to connected clients. Events travel through
// Redis Pub/Sub so every instance sees them regardless of which one produced
// them.
type EventHub struct {
	rdb     *redis.Client
	mu      sync.RWMutex
	conns   map[string]EventConn // userID -> connection (latest wins)
	started sync.Once
}

func NewEventHub(rdb *redis.Client) *EventHub {
	return &EventHub{
		rdb:   rdb,
		conns: make(map[string]EventConn),
	}
}

// Register registers or replaces a user's connection.
func (h *EventHub) Register(userID string, conn EventConn) {
	h.mu.Lock()
	h.conns[userID] = conn
	h.mu.Unlock()
}

func (h *EventHub) Unregister(userID string) {
	h.mu.Lock()
	delete(h.conns, userID)
	h.mu.Unlock()
}

// FanOut delivers an event to local connections. Sends are best-effort and
// non-blocking; a dead connection just logs.
func (h *EventHub) FanOut(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, conn := range h.conns {
		if event.UserID != "" && event.UserID != userID {
			continue
		}
		go func(c EventConn) {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("event hub: websocket write failed: %v", err)
			}
		}(conn)
	}
}

// Publish pushes an event into the Redis channel.
func (h *EventHub) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, EventsChannel, data).Err()
}

// Start ensures a single shared Redis listener per instance.
func (h *EventHub) Start(ctx context.Context) {
	h.started.Do(func() {
		go h.run(ctx)
	})
}

func (h *EventHub) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.rdb.Subscribe(ctx, EventsChannel)
			defer pubsub.Close()

			log.Printf("✅ Event subscriber started (channel: %s)", EventsChannel)

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("event hub: subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("event hub: failed to unmarshal event: %v", err)
					continue
				}
				h.FanOut(event)
			}
		}()

		if ctx.Err() != nil {
			return
		}
	}
}

// WatchInventory bridges the remote component change stream into the event
// channel: whenever the remote collection changes, every connected client
// gets the refreshed inventory snapshot.
func (h *EventHub) WatchInventory(ctx context.Context, remote *RemoteStore) {
	if remote == nil {
		return
	}
	go func() {
		sub, err := remote.SubscribeComponents(ctx)
		if err != nil {
			log.Printf("event hub: inventory watch unavailable: %v", err)
			return
		}
		defer sub.Cancel()

		for snapshot := range sub.C {
			if err := h.Publish(ctx, Event{Type: "inventory", Payload: snapshot}); err != nil {
				log.Printf("event hub: failed to publish inventory event: %v", err)
			}
		}
	}()
}
