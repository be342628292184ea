// Package marketplace implements listings, likes and public profiles.
package marketplace

import (
	"context"
	"errors"
	"strings"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/events"
	"campusmarket/backend/internal/media"
	"campusmarket/backend/internal/metrics"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/ratelimit"
	"campusmarket/backend/internal/storage"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type CreateItemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Tags        []string `json:"tags"`
	// Image is an optional base64 image or data: URL.
	Image string `json:"image"`
}

// UpdateItemRequest changes only the non-nil fields.
type UpdateItemRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	PriceCents  *int64    `json:"price_cents"`
	Category    *string   `json:"category"`
	Condition   *string   `json:"condition"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
	Image       *string   `json:"image"`
}

type ListParams struct {
	// CallerID is charged against the read limit.
	CallerID string
	Query    string
	Category string
	SellerID string
	Status   string
	Limit    int
	Offset   int
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}

type Service struct {
	items          storage.ItemStore
	users          storage.UserStore
	images         *media.Images
	events         events.Publisher
	readLimiter    ratelimit.Limiter
	profileLimiter ratelimit.Limiter
	logger         *zap.Logger
}

type Deps struct {
	Items          storage.ItemStore
	Users          storage.UserStore
	Images         *media.Images
	Events         events.Publisher
	// ReadLimiter is shared with message fetches; keyed by caller id.
	ReadLimiter    ratelimit.Limiter
	ProfileLimiter ratelimit.Limiter
	Logger         *zap.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		items:          d.Items,
		users:          d.Users,
		images:         d.Images,
		events:         d.Events,
		readLimiter:    d.ReadLimiter,
		profileLimiter: d.ProfileLimiter,
		logger:         d.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

func (s *Service) CreateItem(ctx context.Context, sellerID string, req CreateItemRequest) (*models.Item, error) {
	if sellerID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	item := &models.Item{SellerID: sellerID, PriceCents: req.PriceCents, Status: models.ItemAvailable}

	var err error
	if item.Title, err = validateTitle(req.Title); err != nil {
		return nil, err
	}
	if item.Description, err = validateDescription(req.Description); err != nil {
		return nil, err
	}
	if err = validatePrice(req.PriceCents); err != nil {
		return nil, err
	}
	if item.Category, err = validateCategory(req.Category); err != nil {
		return nil, err
	}
	if item.Condition, err = validateCondition(req.Condition); err != nil {
		return nil, err
	}
	if item.Tags, err = normalizeTags(req.Tags); err != nil {
		return nil, err
	}

	if req.Image != "" {
		stored, err := s.images.SaveItemImage(ctx, sellerID, req.Image)
		if err != nil {
			return nil, err
		}
		item.ImageURL, item.ThumbnailURL = stored.URL, stored.ThumbnailURL
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, apperr.Store("failed to create item", err)
	}
	s.publish(ctx, events.TypeItemCreated, item.ID, item)
	return item, nil
}

// GetItem returns the item and counts a view unless the caller is the seller.
func (s *Service) GetItem(ctx context.Context, callerID, id string) (*models.Item, error) {
	if err := s.admit(ctx, s.readLimiter, callerID, "read"); err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != "" && callerID != item.SellerID {
		if err := s.items.IncrementItemViews(ctx, id); err != nil {
			s.logger.Warn("failed to count item view", zap.String("item_id", id), zap.Error(err))
		} else {
			item.Views++
		}
	}
	return item, nil
}

// ListItems lists available items unless a status or seller is given.
func (s *Service) ListItems(ctx context.Context, p ListParams) ([]models.Item, error) {
	if err := s.admit(ctx, s.readLimiter, p.CallerID, "read"); err != nil {
		return nil, err
	}
	filter := models.ItemFilter{
		Query:    strings.TrimSpace(p.Query),
		Category: strings.ToLower(strings.TrimSpace(p.Category)),
		SellerID: p.SellerID,
		Status:   p.Status,
	}
	filter.Limit, filter.Offset = pageBounds(p.Limit, p.Offset)
	if filter.Category != "" && !config.ItemCategories[filter.Category] {
		return nil, apperr.Validation("unknown category")
	}
	if filter.Status == "" && filter.SellerID == "" {
		filter.Status = models.ItemAvailable
	}
	if filter.Status != "" && filter.Status != models.ItemAvailable && filter.Status != models.ItemSold {
		return nil, apperr.Validation("unknown status")
	}

	items, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return nil, apperr.Store("failed to list items", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

func (s *Service) UpdateItem(ctx context.Context, callerID, id string, req UpdateItemRequest) (*models.Item, error) {
	item, err := s.ownedItem(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		v, err := validateTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		fields["title"] = v
	}
	if req.Description != nil {
		v, err := validateDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		fields["description"] = v
	}
	if req.PriceCents != nil {
		if err := validatePrice(*req.PriceCents); err != nil {
			return nil, err
		}
		fields["price_cents"] = *req.PriceCents
	}
	if req.Category != nil {
		v, err := validateCategory(*req.Category)
		if err != nil {
			return nil, err
		}
		fields["category"] = v
	}
	if req.Condition != nil {
		v, err := validateCondition(*req.Condition)
		if err != nil {
			return nil, err
		}
		fields["condition"] = v
	}
	if req.Tags != nil {
		v, err := normalizeTags(*req.Tags)
		if err != nil {
			return nil, err
		}
		fields["tags"] = pq.StringArray(v)
	}
	if req.Status != nil {
		if *req.Status != models.ItemAvailable && *req.Status != models.ItemSold {
			return nil, apperr.Validation("unknown status")
		}
		fields["status"] = *req.Status
	}
	if req.Image != nil && *req.Image != "" {
		stored, err := s.images.SaveItemImage(ctx, item.SellerID, *req.Image)
		if err != nil {
			return nil, err
		}
		fields["image_url"] = stored.URL
		fields["thumbnail_url"] = stored.ThumbnailURL
	}
	if len(fields) == 0 {
		return item, nil
	}

	updated, err := s.items.UpdateItem(ctx, id, fields)
	if err != nil {
		return nil, s.itemErr("failed to update item", err)
	}
	return updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, callerID, id string) error {
	if _, err := s.ownedItem(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.items.DeleteItem(ctx, id); err != nil {
		return s.itemErr("failed to delete item", err)
	}
	return nil
}

// Like records userID's like. Liking twice is not an error and counts once.
func (s *Service) Like(ctx context.Context, userID, itemID string) (*models.Item, error) {
	if userID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}
	added, err := s.items.AddLike(ctx, userID, itemID)
	if err != nil {
		return nil, apperr.Store("failed to like item", err)
	}
	if added {
		s.publish(ctx, events.TypeItemLiked, itemID, models.Like{UserID: userID, ItemID: itemID})
	}
	return s.loadItem(ctx, itemID)
}

func (s *Service) Unlike(ctx context.Context, userID, itemID string) (*models.Item, error) {
	if userID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}
	if _, err := s.items.RemoveLike(ctx, userID, itemID); err != nil {
		return nil, apperr.Store("failed to unlike item", err)
	}
	return s.loadItem(ctx, itemID)
}

func (s *Service) ListLiked(ctx context.Context, userID string) ([]models.Item, error) {
	if userID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if err := s.admit(ctx, s.readLimiter, userID, "read"); err != nil {
		return nil, err
	}
	items, err := s.items.ListLikedItems(ctx, userID)
	if err != nil {
		return nil, apperr.Store("failed to list liked items", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

func (s *Service) GetProfile(ctx context.Context, callerID, id string) (*models.Profile, error) {
	if err := s.admit(ctx, s.readLimiter, callerID, "read"); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Store("failed to load profile", err)
	}
	p := user.Profile()
	return &p, nil
}

// UpdateProfile edits the caller's own profile, behind the stricter
// profile-update limiter.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req ProfileUpdate) (*models.Profile, error) {
	if userID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	if err := s.admit(ctx, s.profileLimiter, config.ProfileKeyPrefix+userID, "profile"); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		v, err := validateDisplayName(*req.DisplayName)
		if err != nil {
			return nil, err
		}
		fields["display_name"] = v
	}
	if req.Bio != nil {
		v, err := validateBio(*req.Bio)
		if err != nil {
			return nil, err
		}
		fields["bio"] = v
	}
	if req.AvatarURL != nil {
		v := strings.TrimSpace(*req.AvatarURL)
		if v != "" && !strings.HasPrefix(v, "https://") {
			return nil, apperr.Validation("avatar URL must use https")
		}
		fields["avatar_url"] = v
	}

	user, err := s.users.UpdateUserProfile(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Store("failed to update profile", err)
	}
	p := user.Profile()
	return &p, nil
}

func (s *Service) loadItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return nil, s.itemErr("failed to load item", err)
	}
	return item, nil
}

func (s *Service) ownedItem(ctx context.Context, callerID, id string) (*models.Item, error) {
	if callerID == "" {
		return nil, apperr.ErrMissingIdentity
	}
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.SellerID != callerID {
		return nil, apperr.ErrNotItemOwner
	}
	return item, nil
}

func (s *Service) itemErr(msg string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrItemNotFound
	}
	s.logger.Error(msg, zap.Error(err))
	return apperr.Store(msg, err)
}

func (s *Service) publish(ctx context.Context, typ, key string, payload interface{}) {
	ev, err := events.NewEvent(typ, key, payload)
	if err != nil {
		s.logger.Warn("encode domain event", zap.String("type", typ), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", typ), zap.Error(err))
	}
}

// admit consults limiter for key. Anonymous calls and limiter backend failures
// are admitted.
func (s *Service) admit(ctx context.Context, limiter ratelimit.Limiter, key, action string) error {
	if limiter == nil || key == "" {
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
