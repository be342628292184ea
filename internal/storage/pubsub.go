package storage

import (
	"context"
	"encoding/json"

	"campusmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// MessageEventsChannel is the Redis channel every API process publishes stored
// messages to and every live-feed hub listens on.
const MessageEventsChannel = "messages:insert"

// PublishMessageEvent fans ev out to every subscribed hub.
func (s *Service) PublishMessageEvent(ctx context.Context, ev models.MessageEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, MessageEventsChannel, payload).Err()
}

func (s *Service) SubscribeMessageEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, MessageEventsChannel)
}
