// Package chathub pushes stored messages to the connected sockets of both
// participants. Every API process runs one Hub; processes share events over
// Redis pub/sub.
package chathub

import (
	"context"

	"campusmarket/backend/internal/metrics"
	"campusmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber opens the shared message-event subscription.
type Subscriber interface {
	SubscribeMessageEvents(ctx context.Context) *redis.PubSub
}

// Hub owns the client registry. Only the Run goroutine touches clients.
type Hub struct {
	clients map[string]map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventsCh     chan models.MessageEvent

	subscriber Subscriber
	logger     *zap.Logger
	done       chan struct{}
}

func NewHub(subscriber Subscriber, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[string]map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventsCh:     make(chan models.MessageEvent, 64),
		subscriber:   subscriber,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Run serves registrations and events until ctx is done, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.subscriber != nil {
		go h.listen(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					c.Close()
				}
			}
			h.clients = make(map[string]map[Client]struct{})
			metrics.FeedClients.Set(0)
			return

		case c := <-h.RegisterCh:
			set, ok := h.clients[c.GetUserID()]
			if !ok {
				set = make(map[Client]struct{})
				h.clients[c.GetUserID()] = set
			}
			set[c] = struct{}{}
			metrics.FeedClients.Inc()
			h.logger.Debug("feed client registered", zap.String("user_id", c.GetUserID()))

		case c := <-h.UnregisterCh:
			if h.remove(c) {
				c.Close()
			}

		case ev := <-h.EventsCh:
			h.dispatch(ev)
		}
	}
}

// Register adds c unless the hub has stopped, in which case c is closed.
func (h *Hub) Register(c Client) {
	select {
	case h.RegisterCh <- c:
	case <-h.done:
		c.Close()
	}
}

// Unregister removes c. It returns immediately once the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

func (h *Hub) dispatch(ev models.MessageEvent) {
	for _, userID := range ev.Recipients() {
		for c := range h.clients[userID] {
			select {
			case c.GetSendChannel() <- ev:
			default:
				h.logger.Warn("dropping slow feed client", zap.String("user_id", userID))
				metrics.FeedDropped.Inc()
				h.remove(c)
				c.Close()
			}
		}
	}
}

func (h *Hub) remove(c Client) bool {
	set, ok := h.clients[c.GetUserID()]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.GetUserID())
	}
	metrics.FeedClients.Dec()
	return true
}
