package messaging_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusmarket/backend/internal/models"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory MessageStore + UserStore. It returns rows in
// arrival order, which lets tests check that callers sort.
type memStore struct {
	mu       sync.Mutex
	messages []models.Message
	users    map[string]models.User
	clock    time.Time
	failAll  bool
}

func newMemStore(users ...models.User) *memStore {
	s := &memStore{
		users: make(map[string]models.User),
		clock: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	s.clock = s.clock.Add(time.Second)
	msg.CreatedAt = s.clock
	s.messages = append(s.messages, *msg)
	return nil
}

// insertRaw appends a row with a caller-chosen timestamp.
func (s *memStore) insertRaw(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *memStore) FindConversation(_ context.Context, a, b string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	var out []models.Message
	for _, m := range s.messages {
		if m.Involves(a, b) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) FindCounterpartIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	var ids []string
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			ids = append(ids, m.Counterpart(userID))
		}
	}
	return ids, nil
}

func (s *memStore) UserExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errStoreDown
	}
	_, ok := s.users[id]
	return ok, nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &u, nil
}

func (s *memStore) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) UpsertUserByExternalID(context.Context, *models.User) error { return nil }

func (s *memStore) UpdateUserProfile(context.Context, string, map[string]interface{}) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
