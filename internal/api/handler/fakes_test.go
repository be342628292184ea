package handler_test

import (
	"context"
	"sync"
	"time"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/identity"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/storage"

	"github.com/google/uuid"
)

// memStore backs messages, users and items in memory.
type memStore struct {
	mu       sync.Mutex
	messages []models.Message
	users    map[string]models.User
	items    map[string]*models.Item
	likes    map[[2]string]bool
	clock    time.Time
}

func newMemStore(users ...models.User) *memStore {
	s := &memStore{
		users: map[string]models.User{},
		items: map[string]*models.Item{},
		likes: map[[2]string]bool{},
		clock: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.tick()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) FindConversation(_ context.Context, a, b string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
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
	var ids []string
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			ids = append(ids, m.Counterpart(userID))
		}
	}
	return ids, nil
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *memStore) UserExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) UpsertUserByExternalID(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ExternalID == user.ExternalID {
			user.ID = u.ID
			return nil
		}
	}
	user.ID = uuid.NewString()
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) UpdateUserProfile(_ context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if v, ok := fields["display_name"]; ok {
		u.DisplayName = v.(string)
	}
	if v, ok := fields["bio"]; ok {
		u.Bio = v.(string)
	}
	s.users[id] = u
	return &u, nil
}

func (s *memStore) CreateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uuid.NewString()
	item.CreatedAt = s.tick()
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *memStore) GetItem(_ context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *memStore) IncrementItemViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		item.Views++
	}
	return nil
}

func (s *memStore) ListItems(_ context.Context, f models.ItemFilter) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Item{}
	for _, item := range s.items {
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.SellerID != "" && item.SellerID != f.SellerID {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *memStore) UpdateItem(_ context.Context, id string, fields map[string]interface{}) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if v, ok := fields["title"]; ok {
		item.Title = v.(string)
	}
	if v, ok := fields["status"]; ok {
		item.Status = v.(string)
	}
	cp := *item
	return &cp, nil
}

func (s *memStore) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memStore) AddLike(_ context.Context, userID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{userID, itemID}
	if s.likes[key] {
		return false, nil
	}
	s.likes[key] = true
	s.items[itemID].Likes++
	return true, nil
}

func (s *memStore) RemoveLike(_ context.Context, userID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{userID, itemID}
	if !s.likes[key] {
		return false, nil
	}
	delete(s.likes, key)
	s.items[itemID].Likes--
	return true, nil
}

func (s *memStore) ListLikedItems(_ context.Context, userID string) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Item{}
	for k := range s.likes {
		if k[0] == userID {
			out = append(out, *s.items[k[1]])
		}
	}
	return out, nil
}

// fakeVerifier accepts one username/password pair.
type fakeVerifier struct {
	username, password string
	profile            identity.Profile
}

func (f *fakeVerifier) Verify(_ context.Context, username, password string) (*identity.Profile, error) {
	if username != f.username || password != f.password {
		return nil, apperr.ErrBadCredentials
	}
	p := f.profile
	return &p, nil
}
