package storage

import (
	"context"

	"campusmarket/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

func (s *Service) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUsersByIDs loads every user in ids with a single query. Unknown ids are
// skipped.
func (s *Service) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		s.Logger.Error("failed to load users", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}
	return users, nil
}

// UpsertUserByExternalID creates the user on first login and refreshes the
// identity-provider fields afterwards. user.ID is set to the stored row's ID.
func (s *Service) UpsertUserByExternalID(ctx context.Context, user *models.User) error {
	result := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "institution", "updated_at"}),
		}).
		Create(user)
	if result.Error != nil {
		s.Logger.Error("failed to upsert user", zap.String("email", user.Email), zap.Error(result.Error))
		return result.Error
	}

	var stored models.User
	if err := s.DB.WithContext(ctx).Where("external_id = ?", user.ExternalID).First(&stored).Error; err != nil {
		return notFound(err)
	}
	*user = stored
	return nil
}

func (s *Service) UpdateUserProfile(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	if len(fields) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			s.Logger.Error("failed to update profile", zap.String("user_id", id), zap.Error(err))
			return nil, err
		}
	}
	return s.GetUserByID(ctx, id)
}
