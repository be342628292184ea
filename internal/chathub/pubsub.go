package chathub

import (
	"context"
	"encoding/json"

	"campusmarket/backend/internal/models"

	"go.uber.org/zap"
)

// listen forwards message events from Redis into EventsCh until ctx is done.
func (h *Hub) listen(ctx context.Context) {
	pubsub := h.subscriber.SubscribeMessageEvents(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.MessageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Warn("undecodable feed event", zap.Error(err))
				continue
			}
			if ev.Type != models.EventInsert {
				continue
			}
			select {
			case h.EventsCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
