// Package chatclient is the client side of direct messaging. A View keeps one
// open conversation consistent across the local cache, a fetch from the API
// and the live feed.
package chatclient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/msgcache"

	"go.uber.org/zap"
)

var (
	ErrNothingToSend = errors.New("chatclient: nothing to send")
	ErrSendInFlight  = errors.New("chatclient: a send is already in flight")
)

// MessageAPI is the message endpoint as seen by a client.
type MessageAPI interface {
	FetchConversation(ctx context.Context, userA, userB string) ([]models.Message, error)
	SendMessage(ctx context.Context, receiverID, content string) (*models.Message, error)
}

// Feed delivers live INSERT events for the current user. The channel is
// closed when the subscription ends; stop ends it early.
type Feed interface {
	Subscribe(ctx context.Context) (events <-chan models.MessageEvent, stop func(), err error)
}

// View is the controller for one conversation between self and peer.
type View struct {
	self, peer, key string

	api    MessageAPI
	feed   Feed
	cache  msgcache.Store
	logger *zap.Logger

	mu       sync.Mutex
	messages []models.Message
	ids      map[string]struct{}
	draft    string
	sending  bool
	loadErr  error
	// loaded is set once the history came from the cache or the API. Until
	// then the list is partial and never written to the shared cache.
	loaded   bool
	sendErr  error
	onChange func([]models.Message)

	stop func()
	done chan struct{}
}

func NewView(self, peer string, api MessageAPI, feed Feed, cache msgcache.Store, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{
		self:   self,
		peer:   peer,
		key:    models.ConversationKey(self, peer),
		api:    api,
		feed:   feed,
		cache:  cache,
		logger: logger.With(zap.String("conversation", models.ConversationKey(self, peer))),
		ids:    make(map[string]struct{}),
	}
}

// Key is the cache key of the conversation.
func (v *View) Key() string { return v.key }

// Open loads the history and subscribes to the live feed. A cache hit skips
// the fetch. A failed fetch leaves the view empty and is reported by LoadErr;
// only a failed subscription is returned.
func (v *View) Open(ctx context.Context) error {
	v.load(ctx)
	if v.feed == nil {
		return nil
	}

	events, stop, err := v.feed.Subscribe(ctx)
	if err != nil {
		v.logger.Warn("live feed unavailable", zap.Error(err))
		return err
	}

	done := make(chan struct{})
	v.mu.Lock()
	v.stop, v.done = stop, done
	v.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range events {
			if ev.Type != models.EventInsert || !ev.Message.Involves(v.self, v.peer) {
				continue
			}
			v.Merge(ev.Message)
		}
	}()
	return nil
}

func (v *View) load(ctx context.Context) {
	if cached, ok := v.cache.Get(v.key); ok {
		v.replace(cached, nil)
		return
	}

	msgs, err := v.api.FetchConversation(ctx, v.self, v.peer)
	if err != nil {
		v.logger.Warn("load conversation failed", zap.Error(err))
		v.replace(nil, err)
		return
	}
	models.SortMessages(msgs)
	v.replace(msgs, nil)
	v.cache.Put(v.key, msgs)
}

func (v *View) replace(msgs []models.Message, loadErr error) {
	v.mu.Lock()
	v.messages = v.messages[:0]
	v.ids = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := v.ids[m.ID]; dup {
			continue
		}
		v.ids[m.ID] = struct{}{}
		v.messages = append(v.messages, m)
	}
	v.loadErr = loadErr
	v.loaded = loadErr == nil
	snapshot, fn := v.snapshotLocked(), v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Merge adds msg unless a message with the same id is already shown. The
// message is placed by CreatedAt, after any message with an equal timestamp,
// and the list is written through to the cache once the history has loaded. It reports whether msg was
// added.
func (v *View) Merge(msg models.Message) bool {
	v.mu.Lock()
	if _, dup := v.ids[msg.ID]; dup {
		v.mu.Unlock()
		return false
	}
	v.ids[msg.ID] = struct{}{}

	n := len(v.messages)
	if n == 0 || !msg.CreatedAt.Before(v.messages[n-1].CreatedAt) {
		v.messages = append(v.messages, msg)
	} else {
		i := sort.Search(n, func(i int) bool {
			return v.messages[i].CreatedAt.After(msg.CreatedAt)
		})
		v.messages = append(v.messages, models.Message{})
		copy(v.messages[i+1:], v.messages[i:])
		v.messages[i] = msg
	}

	snapshot, fn := v.snapshotLocked(), v.onChange
	if v.loaded {
		v.cache.Put(v.key, snapshot)
	}
	v.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

// Send submits the draft. The draft is cleared before the call and restored
// if the call fails. On success the stored message is merged and the cache
// entry is dropped so the next open refetches.
func (v *View) Send(ctx context.Context) (*models.Message, error) {
	v.mu.Lock()
	if v.sending {
		v.mu.Unlock()
		return nil, ErrSendInFlight
	}
	draft := v.draft
	content := strings.TrimSpace(draft)
	if content == "" {
		v.mu.Unlock()
		return nil, ErrNothingToSend
	}
	v.sending = true
	v.draft = ""
	v.mu.Unlock()

	msg, err := v.api.SendMessage(ctx, v.peer, content)

	v.mu.Lock()
	v.sending = false
	v.sendErr = err
	if err != nil {
		if v.draft == "" {
			v.draft = draft
		}
		v.mu.Unlock()
		v.logger.Warn("send failed", zap.Error(err))
		return nil, err
	}
	v.mu.Unlock()

	v.Merge(*msg)
	v.cache.Invalidate(v.key)
	return msg, nil
}

// Close ends the live-feed subscription and waits for pending merges. Cache
// entries are left alone.
func (v *View) Close() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop, v.done = nil, nil
	v.mu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
}

// Messages returns a copy of the shown messages, oldest first.
func (v *View) Messages() []models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

func (v *View) SetDraft(text string) {
	v.mu.Lock()
	v.draft = text
	v.mu.Unlock()
}

// Sending reports whether a send is in flight.
func (v *View) Sending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sending
}

// OnChange registers fn to be called with a copy of the list after every
// change. fn runs outside the view's lock.
func (v *View) OnChange(fn func([]models.Message)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// LoadErr is the error of the last history load, if any.
func (v *View) LoadErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// SendErr is the error of the last send, if any.
func (v *View) SendErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sendErr
}

func (v *View) snapshotLocked() []models.Message {
	out := make([]models.Message, len(v.messages))
	copy(out, v.messages)
	return out
}
