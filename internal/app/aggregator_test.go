package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialfeed/internal/social"
)

// MockFetcher is a mock implementation of social.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Platform() social.Platform {
	return m.Called().Get(0).(social.Platform)
}

func (m *MockFetcher) Fetch(ctx context.Context) social.Result {
	return m.Called(ctx).Get(0).(social.Result)
}

func newMockFetcher(platform social.Platform) *MockFetcher {
	m := new(MockFetcher)
	m.On("Platform").Return(platform).Maybe()
	return m
}

func testPost(platform social.Platform, id, ts string) social.Post {
	return social.Post{
		ID:        id,
		Platform:  platform,
		MediaType: social.MediaText,
		Permalink: "https://example.com/" + id,
		Timestamp: ts,
	}
}

func newTestAggregator(clock clockwork.Clock, fetchers ...social.Fetcher) (*Aggregator, *FeedCache) {
	cache := NewFeedCache(clock)
	return NewAggregator(AggregatorOptions{
		Fetchers:       fetchers,
		Cache:          cache,
		TTL:            5 * time.Minute,
		MaxPosts:       12,
		RefreshTimeout: time.Second,
	}), cache
}

func ids(posts []social.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestAggregator_RefreshThenServeFromCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).Return(social.Result{Platform: social.PlatformFacebook, Posts: []social.Post{
		testPost(social.PlatformFacebook, "a-0103", "2025-01-03T00:00:00+0000"),
		testPost(social.PlatformFacebook, "a-0101", "2025-01-01T00:00:00+0000"),
	}})
	ig := newMockFetcher(social.PlatformInstagram)
	ig.On("Fetch", mock.Anything).Return(social.Result{Platform: social.PlatformInstagram, Posts: []social.Post{
		testPost(social.PlatformInstagram, "b-0102", "2025-01-02T00:00:00+0000"),
	}})

	agg, _ := newTestAggregator(clock, fb, ig)

	first := agg.Feed(context.Background())
	require.NoError(t, first.Err)
	assert.False(t, first.Cached)
	assert.Equal(t, []string{"a-0103", "b-0102", "a-0101"}, ids(first.Posts))

	clock.Advance(10 * time.Second)
	second := agg.Feed(context.Background())
	require.NoError(t, second.Err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Posts, second.Posts)

	fb.AssertNumberOfCalls(t, "Fetch", 1)
	ig.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestAggregator_RefreshesAtTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).Return(social.Result{Posts: []social.Post{
		testPost(social.PlatformFacebook, "1", "2025-01-03T00:00:00+0000"),
	}})

	agg, _ := newTestAggregator(clock, fb)
	agg.Feed(context.Background())

	clock.Advance(5*time.Minute - time.Second)
	assert.True(t, agg.Feed(context.Background()).Cached)

	clock.Advance(time.Second)
	res := agg.Feed(context.Background())
	assert.False(t, res.Cached)
	fb.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestAggregator_EmptyCacheAlwaysRefreshes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).Return(social.Result{Posts: []social.Post{}})

	agg, cache := newTestAggregator(clock, fb)

	res := agg.Feed(context.Background())
	require.NoError(t, res.Err)
	assert.Empty(t, res.Posts)
	assert.False(t, cache.FetchedAt().IsZero())

	agg.Feed(context.Background())
	fb.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestAggregator_OnePlatformDown(t *testing.T) {
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).Return(social.Result{
		Platform: social.PlatformFacebook,
		Posts:    []social.Post{},
		Err:      social.ErrUpstreamStatus,
	})
	ig := newMockFetcher(social.PlatformInstagram)
	ig.On("Fetch", mock.Anything).Return(social.Result{Platform: social.PlatformInstagram, Posts: []social.Post{
		testPost(social.PlatformInstagram, "ig1", "2025-01-02T00:00:00+0000"),
		testPost(social.PlatformInstagram, "ig2", "2025-01-01T00:00:00+0000"),
	}})

	agg, _ := newTestAggregator(clockwork.NewFakeClock(), fb, ig)
	res := agg.Feed(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"ig1", "ig2"}, ids(res.Posts))
}

func TestAggregator_NoFetchersYieldsEmptyFeed(t *testing.T) {
	agg, _ := newTestAggregator(clockwork.NewFakeClock())
	res := agg.Feed(context.Background())

	require.NoError(t, res.Err)
	assert.NotNil(t, res.Posts)
	assert.Empty(t, res.Posts)
}

func TestAggregator_PanicServesStaleCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).Return(social.Result{Posts: []social.Post{
		testPost(social.PlatformFacebook, "old", "2025-01-01T00:00:00+0000"),
	}}).Once()
	fb.On("Fetch", mock.Anything).Panic("malformed state").Once()

	agg, cache := newTestAggregator(clock, fb)
	agg.Feed(context.Background())
	fetchedAt := cache.FetchedAt()

	clock.Advance(6 * time.Minute)
	res := agg.Feed(context.Background())

	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, ErrRefreshPanic))
	assert.False(t, res.Cached)
	assert.Equal(t, []string{"old"}, ids(res.Posts))
	assert.Equal(t, fetchedAt, cache.FetchedAt(), "failed refresh keeps the fetch time")
}

func TestAggregator_SingleFlight(t *testing.T) {
	release := make(chan time.Time)
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).WaitUntil(release).Return(social.Result{Posts: []social.Post{
		testPost(social.PlatformFacebook, "1", "2025-01-03T00:00:00+0000"),
	}})

	agg, _ := newTestAggregator(clockwork.NewFakeClock(), fb)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]FeedResult, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = agg.Feed(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	fb.AssertNumberOfCalls(t, "Fetch", 1)
	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, []string{"1"}, ids(res.Posts))
	}
}

func TestAggregator_CallerCancellationDoesNotAbortRefresh(t *testing.T) {
	release := make(chan time.Time)
	fb := newMockFetcher(social.PlatformFacebook)
	fb.On("Fetch", mock.Anything).WaitUntil(release).Return(social.Result{Posts: []social.Post{
		testPost(social.PlatformFacebook, "1", "2025-01-03T00:00:00+0000"),
	}})

	agg, cache := newTestAggregator(clockwork.NewFakeClock(), fb)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan FeedResult)
	go func() { done <- agg.Feed(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	res := <-done
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return cache.Size() == 1 }, time.Second, 10*time.Millisecond)
}
