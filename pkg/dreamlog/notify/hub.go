package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

const subscriberBuffer = 16

// Hub is an in-process implementation of dreamlog.Publisher and
// dreamlog.Subscriber. Delivery is per-dream fan-out; slow subscribers have
// events dropped rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[int]chan dreamlog.Event
	nextID int
	logger *slog.Logger
}

// NewHub creates an in-process notification hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[int]chan dreamlog.Event),
		logger: logger,
	}
}

// Publish delivers an event to every subscriber of the event's dream.
func (h *Hub) Publish(ctx context.Context, event dreamlog.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs[event.DreamID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				"channel", ChannelName(event.DreamID),
				"subscriber", id,
				"status", event.Status)
		}
	}
	return nil
}

// Subscribe registers interest in one dream's updates. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(ctx context.Context, dreamID uuid.UUID) (<-chan dreamlog.Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[dreamID] == nil {
		h.subs[dreamID] = make(map[int]chan dreamlog.Event)
	}

	id := h.nextID
	h.nextID++

	ch := make(chan dreamlog.Event, subscriberBuffer)
	h.subs[dreamID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if chans, ok := h.subs[dreamID]; ok {
			if _, ok := chans[id]; ok {
				delete(chans, id)
				close(ch)
			}
			if len(chans) == 0 {
				delete(h.subs, dreamID)
			}
		}
	}
	return ch, cancel, nil
}
