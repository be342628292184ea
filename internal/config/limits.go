package config

import "time"

const (
	// Messaging
	MaxMessageLength     = 1000
	ConversationFetchCap = 100

	// Local message cache
	MessageCacheTTL        = 2 * time.Minute
	MessageCacheMaxEntries = 50

	// Rate limits
	ReadLimit            = 100
	ReadWindow           = time.Hour
	SendLimit            = 100
	SendWindow           = time.Hour
	ProfileUpdateLimit   = 10
	ProfileUpdateWindow  = time.Hour
	LoginPerMinute       = 20
	RateLimitMaxEntries  = 100_000
	RateLimitSweepPeriod = 5 * time.Minute

	// Key prefixes for the stricter action classes
	SendKeyPrefix    = "send_"
	ProfileKeyPrefix = "profile_"

	// Outbound calls
	OutboundTimeout = 30 * time.Second

	// Marketplace
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxBioLength         = 500
	MaxDisplayNameLength = 60
	DefaultPageSize      = 20
	MaxPageSize          = 100
	MaxImageBytes        = 5 << 20
	ThumbnailWidth       = 320
)

var ItemCategories = map[string]bool{
	"books":       true,
	"electronics": true,
	"furniture":   true,
	"clothing":    true,
	"sports":      true,
	"other":       true,
}

var ItemConditions = map[string]bool{
	"new":      true,
	"like_new": true,
	"good":     true,
	"fair":     true,
}
