// Package messaging implements direct messages between users: the store
// gateway, the conversations aggregator and the endpoint pipelines that put
// authentication, rate limiting and validation in front of them.
package messaging

import (
	"context"
	"errors"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/metrics"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/storage"

	"go.uber.org/zap"
)

// Gateway is the only component that reads or writes message rows.
type Gateway struct {
	messages storage.MessageStore
	users    storage.UserStore
	logger   *zap.Logger
}

func NewGateway(messages storage.MessageStore, users storage.UserStore, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{messages: messages, users: users, logger: logger}
}

// InsertMessage stores a message from senderID to receiverID. content is
// expected to be normalized already.
func (g *Gateway) InsertMessage(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	if !IsUUID(senderID) || !IsUUID(receiverID) {
		return nil, apperr.ErrInvalidUUID
	}

	exists, err := g.users.UserExists(ctx, receiverID)
	if err != nil {
		g.logger.Error("receiver lookup failed", zap.String("receiver_id", receiverID), zap.Error(err))
		return nil, apperr.Store("failed to send message", err)
	}
	if !exists {
		return nil, apperr.ErrReceiverNotFound
	}

	msg := &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := g.messages.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Store("failed to send message", err)
	}
	metrics.MessagesSent.Inc()
	return msg, nil
}

// FetchConversation returns up to limit messages between a and b, oldest
// first. limit <= 0 means the default cap.
func (g *Gateway) FetchConversation(ctx context.Context, a, b string, limit int) ([]models.Message, error) {
	if !IsUUID(a) || !IsUUID(b) {
		return nil, apperr.ErrInvalidUUID
	}
	if limit <= 0 || limit > config.ConversationFetchCap {
		limit = config.ConversationFetchCap
	}

	msgs, err := g.messages.FindConversation(ctx, a, b, limit)
	if err != nil {
		return nil, apperr.Store("failed to load conversation", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	models.SortMessages(msgs)
	return msgs, nil
}

// FetchActiveCounterparts returns the distinct users userID has talked to. A
// store failure is logged and reported as no counterparts.
func (g *Gateway) FetchActiveCounterparts(ctx context.Context, userID string) []string {
	ids, err := g.messages.FindCounterpartIDs(ctx, userID)
	if err != nil {
		g.logger.Warn("degrading counterparts to empty", zap.String("user_id", userID), zap.Error(err))
		metrics.DegradedReads.WithLabelValues("counterparts").Inc()
		return []string{}
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == userID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ResolveProfiles loads display profiles for ids in one call.
func (g *Gateway) ResolveProfiles(ctx context.Context, ids []string) (map[string]models.User, error) {
	users, err := g.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Store("failed to resolve profiles", err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// isStoreErr reports whether err came from the store rather than validation.
func isStoreErr(err error) bool {
	return errors.Is(err, apperr.ErrStore)
}
