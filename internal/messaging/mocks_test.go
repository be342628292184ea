package messaging_test

import (
	"context"

	"campusmarket/backend/internal/events"
	"campusmarket/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockMessageStore is a testify mock of storage.MessageStore.
type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageStore) FindConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageStore) FindCounterpartIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockUserStore is a testify mock of storage.UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) UserExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserStore) UpsertUserByExternalID(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) UpdateUserProfile(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockFeed records live-feed publishes.
type MockFeed struct {
	mock.Mock
}

func (m *MockFeed) PublishMessageEvent(ctx context.Context, ev models.MessageEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockEvents records domain-event publishes.
type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) Publish(ctx context.Context, ev events.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockEvents) Close() error { return nil }
