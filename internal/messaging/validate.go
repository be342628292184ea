package messaging

import (
	"strings"
	"unicode/utf8"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"

	"github.com/google/uuid"
)

// IsUUID accepts only the canonical 36-character hyphenated form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NormalizeContent trims the body and cuts it to the maximum message length.
// A body that is empty afterwards is rejected.
func NormalizeContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > config.MaxMessageLength {
		s = string([]rune(s)[:config.MaxMessageLength])
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return "", apperr.ErrEmptyMessage
	}
	return s, nil
}
