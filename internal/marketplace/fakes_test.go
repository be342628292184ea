package marketplace_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"campusmarket/backend/internal/events"
	"campusmarket/backend/internal/identity"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/storage"

	"github.com/google/uuid"
)

// memStore is an in-memory ItemStore + UserStore.
type memStore struct {
	mu    sync.Mutex
	items map[string]*models.Item
	likes map[[2]string]time.Time
	users map[string]*models.User
	clock time.Time
	fail  error
}

func newMemStore() *memStore {
	return &memStore{
		items: map[string]*models.Item{},
		likes: map[[2]string]time.Time{},
		users: map[string]*models.User{},
		clock: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) CreateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = s.tick()
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *memStore) GetItem(_ context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
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
	if s.fail != nil {
		return nil, s.fail
	}
	var out []models.Item
	for _, item := range s.items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.SellerID != "" && item.SellerID != f.SellerID {
			continue
		}
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
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
	for k, v := range fields {
		switch k {
		case "title":
			item.Title = v.(string)
		case "price_cents":
			item.PriceCents = v.(int64)
		case "status":
			item.Status = v.(string)
		case "category":
			item.Category = v.(string)
		}
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
	for k := range s.likes {
		if k[1] == id {
			delete(s.likes, k)
		}
	}
	return nil
}

func (s *memStore) AddLike(_ context.Context, userID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{userID, itemID}
	if _, ok := s.likes[key]; ok {
		return false, nil
	}
	s.likes[key] = s.tick()
	s.items[itemID].Likes++
	return true, nil
}

func (s *memStore) RemoveLike(_ context.Context, userID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{userID, itemID}
	if _, ok := s.likes[key]; !ok {
		return false, nil
	}
	delete(s.likes, key)
	s.items[itemID].Likes--
	return true, nil
}

func (s *memStore) ListLikedItems(_ context.Context, userID string) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Item
	for k := range s.likes {
		if k[0] == userID {
			out = append(out, *s.items[k[1]])
		}
	}
	return out, nil
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
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUsersByIDs(context.Context, []string) ([]models.User, error) {
	return nil, errors.New("not used")
}

func (s *memStore) UpsertUserByExternalID(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	for _, u := range s.users {
		if u.ExternalID == user.ExternalID {
			u.Email, u.Institution = user.Email, user.Institution
			*user = *u
			return nil
		}
	}
	user.ID = uuid.NewString()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) UpdateUserProfile(_ context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "display_name":
			u.DisplayName = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "avatar_url":
			u.AvatarURL = v.(string)
		}
	}
	cp := *u
	return &cp, nil
}

// recorder collects published domain events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeVerifier struct {
	profile *identity.Profile
	err     error
}

func (f fakeVerifier) Verify(context.Context, string, string) (*identity.Profile, error) {
	return f.profile, f.err
}
