// FILE: internal/app/cache.go
package app

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"socialfeed/internal/social"
)

// FeedCache holds the last merged feed. It starts empty with a zero fetch
// time, so it is stale until the first refresh. Every Set replaces the whole
// feed.
type FeedCache struct {
	mu        sync.RWMutex
	posts     []social.Post
	fetchedAt time.Time
	clock     clockwork.Clock
}

// NewFeedCache creates an empty FeedCache.
func NewFeedCache(clock clockwork.Clock) *FeedCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FeedCache{posts: []social.Post{}, clock: clock}
}

// Get returns the cached posts and how long ago they were stored. The slice
// must not be modified.
func (c *FeedCache) Get() ([]social.Post, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.posts, c.clock.Since(c.fetchedAt)
}

// Set replaces the cached posts and stamps the fetch time.
func (c *FeedCache) Set(posts []social.Post) {
	stored := slices.Clone(posts)
	if stored == nil {
		stored = []social.Post{}
	}
	c.mu.Lock()
	c.posts = stored
	c.fetchedAt = c.clock.Now()
	c.mu.Unlock()
}

// Size returns current number of posts.
func (c *FeedCache) Size() int {
	c.mu.RLock()
	sz := len(c.posts)
	c.mu.RUnlock()
	return sz
}

// FetchedAt returns when the cache was last populated (zero if never).
func (c *FeedCache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}
