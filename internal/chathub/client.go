package chathub

import "campusmarket/backend/internal/models"

// Client is one live-feed connection of a user. A user may hold several at
// once (tabs, devices).
type Client interface {
	// GetUserID returns the authenticated user the connection belongs to.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes events to. The hub
	// never blocks on it; a full channel gets the client dropped.
	GetSendChannel() chan<- models.MessageEvent

	// Run starts the connection pumps.
	Run()
	// Close stops the connection. It must be safe to call more than once.
	Close()
}
