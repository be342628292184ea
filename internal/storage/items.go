package storage

import (
	"context"

	"campusmarket/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateItem(ctx context.Context, item *models.Item) error {
	if err := s.DB.WithContext(ctx).Create(item).Error; err != nil {
		s.Logger.Error("failed to save item", zap.String("seller_id", item.SellerID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Service) IncrementItemViews(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// ListItems returns the newest items matching filter. Query matches title,
// description and tags case-insensitively.
func (s *Service) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	q := s.DB.WithContext(ctx).Model(&models.Item{})
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ? OR ? = ANY(tags)", pattern, pattern, filter.Query)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var items []models.Item
	err := q.Order("created_at desc").Limit(filter.Limit).Offset(filter.Offset).Find(&items).Error
	if err != nil {
		s.Logger.Error("failed to list items", zap.String("query", filter.Query), zap.Error(err))
		return nil, err
	}
	return items, nil
}

func (s *Service) UpdateItem(ctx context.Context, id string, fields map[string]interface{}) (*models.Item, error) {
	if len(fields) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			s.Logger.Error("failed to update item", zap.String("item_id", id), zap.Error(err))
			return nil, err
		}
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes the item and its likes.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Item{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddLike records the like and bumps the item's counter in one transaction.
// It reports false when the user already liked the item.
func (s *Service) AddLike(ctx context.Context, userID, itemID string) (bool, error) {
	added := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{UserID: userID, ItemID: itemID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		added = true
		return tx.Model(&models.Item{}).Where("id = ?", itemID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error
	})
	return added, err
}

// RemoveLike is the inverse of AddLike. It reports false when there was no like.
func (s *Service) RemoveLike(ctx context.Context, userID, itemID string) (bool, error) {
	removed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.Like{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Item{}).Where("id = ? AND likes > 0", itemID).
			UpdateColumn("likes", gorm.Expr("likes - 1")).Error
	})
	return removed, err
}

func (s *Service) ListLikedItems(ctx context.Context, userID string) ([]models.Item, error) {
	var items []models.Item
	err := s.DB.WithContext(ctx).
		Joins("JOIN likes ON likes.item_id = items.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
