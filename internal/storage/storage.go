// Package storage is the only package that talks to PostgreSQL (through gorm)
// and to Redis.
package storage

import (
	"context"
	"errors"

	"campusmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("storage: record not found")

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	FindConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error)
	FindCounterpartIDs(ctx context.Context, userID string) ([]string, error)
}

type UserStore interface {
	UserExists(ctx context.Context, id string) (bool, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpsertUserByExternalID(ctx context.Context, user *models.User) error
	UpdateUserProfile(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error)
}

type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	IncrementItemViews(ctx context.Context, id string) error
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	UpdateItem(ctx context.Context, id string, fields map[string]interface{}) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	AddLike(ctx context.Context, userID, itemID string) (bool, error)
	RemoveLike(ctx context.Context, userID, itemID string) (bool, error)
	ListLikedItems(ctx context.Context, userID string) ([]models.Item, error)
}

// FeedBus carries live-feed events between API processes.
type FeedBus interface {
	PublishMessageEvent(ctx context.Context, ev models.MessageEvent) error
	SubscribeMessageEvents(ctx context.Context) *redis.PubSub
}

// Storage is everything the API server needs from the persistence layer.
type Storage interface {
	MessageStore
	UserStore
	ItemStore
	FeedBus
}

type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		DB:     db,
		Redis:  rdb,
		Logger: logger,
	}
}

// Migrate creates or updates the tables for every model.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Item{},
		&models.Like{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
