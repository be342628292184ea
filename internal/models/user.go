package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a verified student account. Accounts are created on first login
// through the campus identity provider.
type User struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	// ExternalID is the subject returned by the identity provider.
	ExternalID  string    `gorm:"uniqueIndex;not null" json:"-"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	Institution string    `json:"institution"`
	Bio         string    `gorm:"type:text" json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is still empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Profile is the public projection of a User.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Institution string `json:"institution"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Institution: u.Institution,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
	}
}
