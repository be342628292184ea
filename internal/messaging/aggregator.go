package messaging

import (
	"context"
	"sort"

	"campusmarket/backend/internal/metrics"
	"campusmarket/backend/internal/models"

	"go.uber.org/zap"
)

// Aggregator builds the conversations sidebar.
type Aggregator struct {
	gateway *Gateway
	logger  *zap.Logger
}

func NewAggregator(gateway *Gateway, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{gateway: gateway, logger: logger}
}

// ListConversations returns one summary per counterpart of userID. When withID
// names a user with no messages yet (a chat opened from a listing), a
// placeholder row is added for it. Internal failures yield an empty list.
func (a *Aggregator) ListConversations(ctx context.Context, userID, withID string) []models.ConversationSummary {
	ids := a.gateway.FetchActiveCounterparts(ctx, userID)

	placeholder := withID != "" && withID != userID && IsUUID(withID) && !contains(ids, withID)
	lookup := ids
	if placeholder {
		lookup = append(append([]string{}, ids...), withID)
	}
	if len(lookup) == 0 {
		return []models.ConversationSummary{}
	}

	profiles, err := a.gateway.ResolveProfiles(ctx, lookup)
	if err != nil {
		a.logger.Warn("degrading conversations to empty", zap.String("user_id", userID), zap.Error(err))
		metrics.DegradedReads.WithLabelValues("conversations").Inc()
		return []models.ConversationSummary{}
	}

	out := make([]models.ConversationSummary, 0, len(lookup))
	for _, id := range ids {
		p, ok := profiles[id]
		if !ok {
			continue
		}
		out = append(out, models.ConversationSummary{ID: id, Name: p.DisplayName, Unread: 0})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})

	if placeholder {
		out = append([]models.ConversationSummary{{
			ID:     withID,
			Name:   profiles[withID].DisplayName,
			Unread: 0,
		}}, out...)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
