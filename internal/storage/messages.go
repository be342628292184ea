package storage

import (
	"context"

	"campusmarket/backend/internal/models"

	"go.uber.org/zap"
)

// CreateMessage inserts msg. ID and CreatedAt are filled in by gorm.
func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		s.Logger.Error("failed to save message",
			zap.String("sender_id", msg.SenderID),
			zap.String("receiver_id", msg.ReceiverID),
			zap.Error(err))
		return err
	}
	return nil
}

// FindConversation returns the latest limit messages exchanged between userA
// and userB, oldest first.
func (s *Service) FindConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("created_at desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		s.Logger.Error("failed to load conversation",
			zap.String("user_a", userA),
			zap.String("user_b", userB),
			zap.Error(err))
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// FindCounterpartIDs returns the distinct users userID has exchanged at least
// one message with.
func (s *Service) FindCounterpartIDs(ctx context.Context, userID string) ([]string, error) {
	rawSQL := `
        SELECT DISTINCT
            CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS other_id
        FROM messages
        WHERE sender_id = ? OR receiver_id = ?
    `

	var ids []string
	if err := s.DB.WithContext(ctx).Raw(rawSQL, userID, userID, userID).Scan(&ids).Error; err != nil {
		s.Logger.Error("failed to load counterparts", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return ids, nil
}
