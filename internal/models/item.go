package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	ItemAvailable = "available"
	ItemSold      = "sold"
)

// Item is a second-hand listing.
type Item struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID    string `gorm:"type:uuid;not null;index" json:"seller_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	PriceCents  int64  `gorm:"not null" json:"price_cents"`
	Category    string `gorm:"index" json:"category"`
	Condition   string `json:"condition"`
	// Tags is stored as a PostgreSQL text array.
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	ImageURL     string         `json:"image_url"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Status       string         `gorm:"not null;default:available;index" json:"status"`
	Views        int64          `gorm:"not null;default:0" json:"views"`
	Likes        int64          `gorm:"not null;default:0" json:"likes"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = ItemAvailable
	}
	return
}

// Like records that a user liked an item. One row per (user, item).
type Like struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	ItemID    string    `gorm:"type:uuid;primaryKey;index" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemFilter narrows item listings. Zero values mean "no filter".
type ItemFilter struct {
	Query    string
	Category string
	SellerID string
	Status   string
	Limit    int
	Offset   int
}
