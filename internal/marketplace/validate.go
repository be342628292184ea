package marketplace

import (
	"strings"
	"unicode/utf8"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"
)

const (
	maxTags      = 10
	maxTagLength = 30
)

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > config.MaxTitleLength {
		return "", apperr.Validation("title is too long")
	}
	return title, nil
}

func validateDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > config.MaxDescriptionLength {
		return "", apperr.Validation("description is too long")
	}
	return desc, nil
}

func validatePrice(cents int64) error {
	if cents < 0 {
		return apperr.Validation("price must not be negative")
	}
	return nil
}

func validateCategory(category string) (string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return "other", nil
	}
	if !config.ItemCategories[category] {
		return "", apperr.Validation("unknown category")
	}
	return category, nil
}

func validateCondition(condition string) (string, error) {
	condition = strings.ToLower(strings.TrimSpace(condition))
	if condition == "" {
		return "good", nil
	}
	if !config.ItemConditions[condition] {
		return "", apperr.Validation("unknown condition")
	}
	return condition, nil
}

// normalizeTags lowercases, trims and de-duplicates tags, dropping blanks.
func normalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagLength {
			return nil, apperr.Validation("tag is too long")
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, apperr.Validation("too many tags")
	}
	return out, nil
}

func validateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("display name is required")
	}
	if utf8.RuneCountInString(name) > config.MaxDisplayNameLength {
		return "", apperr.Validation("display name is too long")
	}
	return name, nil
}

func validateBio(bio string) (string, error) {
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > config.MaxBioLength {
		return "", apperr.Validation("bio is too long")
	}
	return bio, nil
}

// pageBounds applies the default page size and clamps to the maximum.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
