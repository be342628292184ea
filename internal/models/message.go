package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message between two users. Messages are immutable once
// stored; the database assigns CreatedAt.
type Message struct {
	// ID is assigned on insert.
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	// SenderID is the user who wrote the message.
	SenderID string `gorm:"type:uuid;not null;index:idx_msg_pair,priority:1;index:idx_msg_sender" json:"sender_id"`
	// ReceiverID is the user the message is addressed to.
	ReceiverID string `gorm:"type:uuid;not null;index:idx_msg_pair,priority:2;index:idx_msg_receiver" json:"receiver_id"`
	// Content is the trimmed message body.
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// Involves reports whether the message was exchanged between a and b, in either
// direction.
func (m *Message) Involves(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Counterpart returns the participant that is not userID.
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ConversationKey is the canonical key of the unordered pair {a, b}.
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// SortMessages orders msgs ascending by CreatedAt. Equal timestamps keep their
// relative order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// ConversationSummary is one row of the conversations sidebar.
type ConversationSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Unread int    `json:"unread"`
}
