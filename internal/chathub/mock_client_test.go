package chathub_test

import (
	"sync/atomic"

	"campusmarket/backend/internal/models"
)

type MockClient struct {
	userID      string
	RecvChannel chan models.MessageEvent
	closed      atomic.Int32
}

func newMockClient(userID string, buffer int) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.MessageEvent, buffer),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetSendChannel() chan<- models.MessageEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Add(1)
}

func (c *MockClient) isClosed() bool {
	return c.closed.Load() > 0
}
