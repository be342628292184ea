package chatclient_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campusmarket/backend/internal/chatclient"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/msgcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	me    = "11111111-1111-4111-8111-111111111111"
	peer  = "22222222-2222-4222-8222-222222222222"
	other = "33333333-3333-4333-8333-333333333333"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, receiverID, content string) (*models.Message, error) {
	args := m.Called(ctx, receiverID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

type fakeFeed struct {
	ch      chan models.MessageEvent
	err     error
	stopped atomic.Bool
	once    sync.Once
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan models.MessageEvent, 8)}
}

func (f *fakeFeed) Subscribe(context.Context) (<-chan models.MessageEvent, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.ch, func() {
		f.once.Do(func() {
			f.stopped.Store(true)
			close(f.ch)
		})
	}, nil
}

func msg(id, from, to string, offset time.Duration) models.Message {
	return models.Message{ID: id, SenderID: from, ReceiverID: to, Content: id, CreatedAt: t0.Add(offset)}
}

func ids(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestView_OpenFetchesSortsAndCaches(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{
		msg("b", peer, me, 2*time.Second),
		msg("a", me, peer, time.Second),
	}, nil).Once()
	cache := msgcache.New()

	v := chatclient.NewView(me, peer, api, nil, cache, nil)
	require.NoError(t, v.Open(context.Background()))

	assert.Equal(t, []string{"a", "b"}, ids(v.Messages()))
	assert.NoError(t, v.LoadErr())
	cached, ok := cache.Get(models.ConversationKey(peer, me))
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids(cached))
}

func TestView_OpenUsesCache(t *testing.T) {
	api := new(MockAPI)
	cache := msgcache.New()
	cache.Put(models.ConversationKey(me, peer), []models.Message{msg("a", me, peer, 0)})

	v := chatclient.NewView(me, peer, api, nil, cache, nil)
	require.NoError(t, v.Open(context.Background()))

	assert.Equal(t, []string{"a"}, ids(v.Messages()))
	api.AssertNotCalled(t, "FetchConversation", mock.Anything, mock.Anything, mock.Anything)
}

func TestView_OpenRefetchesAfterTTL(t *testing.T) {
	now := t0
	cache := msgcache.New(msgcache.WithClock(func() time.Time { return now }))
	cache.Put(models.ConversationKey(me, peer), []models.Message{msg("stale", me, peer, 0)})
	now = now.Add(2 * time.Minute)

	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{msg("fresh", me, peer, 0)}, nil).Once()

	v := chatclient.NewView(me, peer, api, nil, cache, nil)
	require.NoError(t, v.Open(context.Background()))

	assert.Equal(t, []string{"fresh"}, ids(v.Messages()))
	api.AssertExpectations(t)
}

func TestView_OpenFetchFailureLeavesEmptyState(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return(nil, errors.New("offline"))
	cache := msgcache.New()

	v := chatclient.NewView(me, peer, api, nil, cache, nil)
	require.NoError(t, v.Open(context.Background()))

	assert.Empty(t, v.Messages())
	assert.EqualError(t, v.LoadErr(), "offline")
	assert.Equal(t, 0, cache.Len())
}

func TestView_OpenSubscriptionFailure(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{msg("a", me, peer, 0)}, nil)
	feed := newFakeFeed()
	feed.err = errors.New("dial failed")

	v := chatclient.NewView(me, peer, api, feed, msgcache.New(), nil)
	err := v.Open(context.Background())

	assert.EqualError(t, err, "dial failed")
	assert.Equal(t, []string{"a"}, ids(v.Messages()), "history stays loaded")
	v.Close()
}

func TestView_MergeIsIdempotent(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{}, nil)
	cache := msgcache.New()
	v := chatclient.NewView(me, peer, api, nil, cache, nil)
	require.NoError(t, v.Open(context.Background()))
	m := msg("a", me, peer, 0)

	assert.True(t, v.Merge(m))
	assert.False(t, v.Merge(m))
	assert.False(t, v.Merge(m))

	assert.Equal(t, []string{"a"}, ids(v.Messages()))
	cached, ok := cache.Get(v.Key())
	require.True(t, ok)
	assert.Len(t, cached, 1)
}

func TestView_MergeAfterFailedLoadSkipsCache(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return(nil, errors.New("offline")).Once()
	api.On("FetchConversation", mock.Anything, peer, me).Return([]models.Message{
		msg("old", me, peer, 0),
		msg("live", peer, me, time.Second),
	}, nil).Once()
	cache := msgcache.New()
	feed := newFakeFeed()

	first := chatclient.NewView(me, peer, api, feed, cache, nil)
	require.NoError(t, first.Open(context.Background()))
	feed.ch <- models.MessageEvent{Type: models.EventInsert, Message: msg("live", peer, me, time.Second)}
	require.Eventually(t, func() bool { return len(first.Messages()) == 1 }, time.Second, 5*time.Millisecond)
	first.Close()

	_, ok := cache.Get(first.Key())
	assert.False(t, ok, "a partial list must not be cached")

	second := chatclient.NewView(peer, me, api, nil, cache, nil)
	require.NoError(t, second.Open(context.Background()))
	assert.Equal(t, []string{"old", "live"}, ids(second.Messages()))
	api.AssertExpectations(t)
}

func TestView_MergeKeepsTimestampOrder(t *testing.T) {
	v := chatclient.NewView(me, peer, new(MockAPI), nil, msgcache.New(), nil)

	v.Merge(msg("c", me, peer, 3*time.Second))
	v.Merge(msg("a", me, peer, 1*time.Second))
	v.Merge(msg("d", peer, me, 4*time.Second))
	v.Merge(msg("b", peer, me, 2*time.Second))
	v.Merge(msg("b2", me, peer, 2*time.Second))

	assert.Equal(t, []string{"a", "b", "b2", "c", "d"}, ids(v.Messages()))
}

func TestView_LiveFeedMergesOnlyThisConversation(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{}, nil)
	feed := newFakeFeed()

	v := chatclient.NewView(me, peer, api, feed, msgcache.New(), nil)
	require.NoError(t, v.Open(context.Background()))

	feed.ch <- models.MessageEvent{Type: models.EventInsert, Message: msg("elsewhere", other, me, time.Second)}
	feed.ch <- models.MessageEvent{Type: "UPDATE", Message: msg("not-insert", peer, me, time.Second)}
	feed.ch <- models.MessageEvent{Type: models.EventInsert, Message: msg("in", peer, me, 2*time.Second)}
	feed.ch <- models.MessageEvent{Type: models.EventInsert, Message: msg("out", me, peer, 3*time.Second)}

	v.Close()

	assert.Equal(t, []string{"in", "out"}, ids(v.Messages()))
	assert.True(t, feed.stopped.Load())
}

func TestView_SendRejectsEmptyDraft(t *testing.T) {
	api := new(MockAPI)
	v := chatclient.NewView(me, peer, api, nil, msgcache.New(), nil)
	v.SetDraft("   \n ")

	_, err := v.Send(context.Background())

	assert.ErrorIs(t, err, chatclient.ErrNothingToSend)
	assert.Equal(t, "   \n ", v.Draft())
	api.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestView_SendSuccess(t *testing.T) {
	stored := msg("new", me, peer, time.Second)
	api := new(MockAPI)
	api.On("SendMessage", mock.Anything, peer, "hello").Return(&stored, nil).Once()
	cache := msgcache.New()

	v := chatclient.NewView(me, peer, api, nil, cache, nil)
	var changes [][]models.Message
	v.OnChange(func(m []models.Message) { changes = append(changes, m) })
	v.SetDraft("  hello ")

	got, err := v.Send(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
	assert.Equal(t, "", v.Draft())
	assert.Equal(t, []string{"new"}, ids(v.Messages()))
	require.Len(t, changes, 1)
	_, cached := cache.Get(v.Key())
	assert.False(t, cached, "cache entry must be invalidated after a send")
	assert.NoError(t, v.SendErr())
}

func TestView_SendThenFeedEchoShowsOnce(t *testing.T) {
	stored := msg("new", me, peer, time.Second)
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{}, nil)
	api.On("SendMessage", mock.Anything, peer, "hi").Return(&stored, nil)
	feed := newFakeFeed()

	v := chatclient.NewView(me, peer, api, feed, msgcache.New(), nil)
	require.NoError(t, v.Open(context.Background()))
	v.SetDraft("hi")
	_, err := v.Send(context.Background())
	require.NoError(t, err)

	feed.ch <- models.MessageEvent{Type: models.EventInsert, Message: stored}
	v.Close()

	assert.Equal(t, []string{"new"}, ids(v.Messages()))
}

func TestView_SendFailureRestoresDraft(t *testing.T) {
	api := new(MockAPI)
	api.On("SendMessage", mock.Anything, peer, "hello").Return(nil, errors.New("429")).Once()

	v := chatclient.NewView(me, peer, api, nil, msgcache.New(), nil)
	v.SetDraft("hello")

	_, err := v.Send(context.Background())

	assert.EqualError(t, err, "429")
	assert.Equal(t, "hello", v.Draft())
	assert.Empty(t, v.Messages())
	assert.EqualError(t, v.SendErr(), "429")
	assert.False(t, v.Sending())
}

func TestView_SendInFlight(t *testing.T) {
	stored := msg("new", me, peer, time.Second)
	release := make(chan struct{})
	entered := make(chan struct{})
	api := new(MockAPI)
	api.On("SendMessage", mock.Anything, peer, "first").Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(&stored, nil).Once()

	v := chatclient.NewView(me, peer, api, nil, msgcache.New(), nil)
	v.SetDraft("first")

	done := make(chan error, 1)
	go func() {
		_, err := v.Send(context.Background())
		done <- err
	}()
	<-entered

	v.SetDraft("second")
	_, err := v.Send(context.Background())
	assert.ErrorIs(t, err, chatclient.ErrSendInFlight)
	assert.True(t, v.Sending())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "second", v.Draft(), "a draft typed during the send is kept")
	api.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestView_CloseLeavesCache(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{msg("a", me, peer, 0)}, nil)
	cache := msgcache.New()
	feed := newFakeFeed()

	v := chatclient.NewView(me, peer, api, feed, cache, nil)
	require.NoError(t, v.Open(context.Background()))
	v.Close()
	v.Close()

	_, ok := cache.Get(v.Key())
	assert.True(t, ok)
}

func TestView_SharedCacheAcrossViews(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchConversation", mock.Anything, me, peer).Return([]models.Message{msg("a", me, peer, 0)}, nil).Once()
	cache := msgcache.New()

	first := chatclient.NewView(me, peer, api, nil, cache, nil)
	require.NoError(t, first.Open(context.Background()))
	second := chatclient.NewView(peer, me, api, nil, cache, nil)
	require.NoError(t, second.Open(context.Background()))

	assert.Equal(t, first.Key(), second.Key())
	assert.Equal(t, []string{"a"}, ids(second.Messages()))
	api.AssertNumberOfCalls(t, "FetchConversation", 1)
}
