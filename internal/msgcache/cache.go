// Package msgcache is the client-side, size and TTL bounded cache of
// conversation message lists. One Cache is shared by every open conversation
// view in the process.
package msgcache

import (
	"container/list"
	"sync"
	"time"

	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/models"
)

// Store is what conversation views depend on.
type Store interface {
	Get(key string) ([]models.Message, bool)
	Put(key string, msgs []models.Message)
	Invalidate(key string)
}

type entry struct {
	key      string
	messages []models.Message
	storedAt time.Time
}

// Cache keeps entries in insertion order; eviction removes the front.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	order      *list.List
	index      map[string]*list.Element
	now        func() time.Time
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns a cache with a 2 minute TTL and 50 entries unless overridden.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:        config.MessageCacheTTL,
		maxEntries: config.MessageCacheMaxEntries,
		order:      list.New(),
		index:      make(map[string]*list.Element),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached list if it is younger than the TTL. An
// expired entry is deleted on the way out.
func (c *Cache) Get(key string) ([]models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.expired(e, c.now()) {
		c.removeLocked(el)
		return nil, false
	}
	return clone(e.messages), true
}

// Put sweeps expired entries, makes room if the cache is full and stores a
// copy of msgs with a fresh timestamp. Re-putting a key moves it to the back.
func (c *Cache) Put(key string, msgs []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	if el, ok := c.index[key]; ok {
		c.removeLocked(el)
	}
	for c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		c.removeLocked(c.order.Front())
	}

	c.index[key] = c.order.PushBack(&entry{key: key, messages: clone(msgs), storedAt: now})
}

// Invalidate removes key unconditionally.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.removeLocked(el)
	}
}

// Len counts stored entries, expired ones included until the next sweep.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

func (c *Cache) sweepLocked(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry), now) {
			c.removeLocked(el)
		}
		el = next
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*entry).key)
}

func clone(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}
