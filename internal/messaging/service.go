package messaging

import (
	"context"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/events"
	"campusmarket/backend/internal/metrics"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/ratelimit"

	"go.uber.org/zap"
)

// FeedPublisher pushes stored messages to live-feed subscribers.
type FeedPublisher interface {
	PublishMessageEvent(ctx context.Context, ev models.MessageEvent) error
}

// SendRequest is the body of a send call. SenderID may be omitted, in which
// case it defaults to the caller.
type SendRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// Service runs the send, fetch and conversations pipelines. Each step rejects
// before any store access when it fails.
type Service struct {
	gateway     *Gateway
	aggregator  *Aggregator
	sendLimiter ratelimit.Limiter
	readLimiter ratelimit.Limiter
	feed        FeedPublisher
	events      events.Publisher
	logger      *zap.Logger
}

type Deps struct {
	Gateway     *Gateway
	Aggregator  *Aggregator
	SendLimiter ratelimit.Limiter
	ReadLimiter ratelimit.Limiter
	Feed        FeedPublisher
	Events      events.Publisher
	Logger      *zap.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		gateway:     d.Gateway,
		aggregator:  d.Aggregator,
		sendLimiter: d.SendLimiter,
		readLimiter: d.ReadLimiter,
		feed:        d.Feed,
		events:      d.Events,
		logger:      d.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.aggregator == nil {
		s.aggregator = NewAggregator(s.gateway, s.logger)
	}
	return s
}

// Send validates and stores a message from callerID. Order: authentication,
// rate limit, id shape, sender == caller, body, receiver existence.
func (s *Service) Send(ctx context.Context, callerID string, req SendRequest) (*models.Message, error) {
	if callerID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if err := s.admit(ctx, s.sendLimiter, config.SendKeyPrefix+callerID, "send"); err != nil {
		return nil, err
	}

	senderID := req.SenderID
	if senderID == "" {
		senderID = callerID
	}
	if !IsUUID(senderID) || !IsUUID(req.ReceiverID) {
		return nil, apperr.ErrInvalidUUID
	}
	if senderID != callerID {
		return nil, apperr.ErrSenderMismatch
	}
	content, err := NormalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	msg, err := s.gateway.InsertMessage(ctx, senderID, req.ReceiverID, content)
	if err != nil {
		if isStoreErr(err) {
			s.logger.Error("send failed", zap.String("sender_id", senderID), zap.Error(err))
		}
		return nil, err
	}

	s.announce(ctx, *msg)
	return msg, nil
}

// Fetch returns the conversation between userA and userB for a caller that is
// one of them.
func (s *Service) Fetch(ctx context.Context, callerID, userA, userB string) ([]models.Message, error) {
	if callerID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if err := s.admit(ctx, s.readLimiter, callerID, "read"); err != nil {
		return nil, err
	}
	if !IsUUID(userA) || !IsUUID(userB) {
		return nil, apperr.ErrInvalidUUID
	}
	if callerID != userA && callerID != userB {
		return nil, apperr.ErrNotParticipant
	}
	return s.gateway.FetchConversation(ctx, userA, userB, config.ConversationFetchCap)
}

// Conversations lists the sidebar for userID (the caller when empty). Data
// errors never surface; only authentication and authorization do.
func (s *Service) Conversations(ctx context.Context, callerID, userID, withID string) ([]models.ConversationSummary, error) {
	if callerID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		return nil, apperr.Forbidden("cannot list another user's conversations")
	}
	return s.aggregator.ListConversations(ctx, userID, withID), nil
}

// admit consults limiter. A limiter backend failure admits the request.
func (s *Service) admit(ctx context.Context, limiter ratelimit.Limiter, key, action string) error {
	if limiter == nil {
		return nil
	}
	ok, err := limiter.Allow(ctx, key)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, admitting request", zap.String("action", action), zap.Error(err))
		return nil
	}
	if !ok {
		metrics.RateLimited.WithLabelValues(action).Inc()
		return apperr.ErrTooManyRequests
	}
	return nil
}

// announce pushes msg to the live feed and the event stream. Failures are
// logged; the message is already stored.
func (s *Service) announce(ctx context.Context, msg models.Message) {
	if s.feed != nil {
		if err := s.feed.PublishMessageEvent(ctx, models.MessageEvent{Type: models.EventInsert, Message: msg}); err != nil {
			s.logger.Warn("live feed publish failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	ev, err := events.NewEvent(events.TypeMessageSent, msg.ReceiverID, msg)
	if err != nil {
		s.logger.Warn("encode message event", zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
