package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialfeed/internal/social"
)

// MockFeedSource is a mock implementation of FeedSource
type MockFeedSource struct {
	mock.Mock
}

func (m *MockFeedSource) Feed(ctx context.Context) FeedResult {
	return m.Called(ctx).Get(0).(FeedResult)
}

func (m *MockFeedSource) Snapshot() []social.Post {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]social.Post)
}

func serveFeed(t *testing.T, h http.Handler, method string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/social-feed", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestFeedHandler_NotConfigured(t *testing.T) {
	source := new(MockFeedSource)
	h := NewFeedHandler(source, false, nil)

	rec, body := serveFeed(t, h, http.MethodGet)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["configured"])
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, []any{}, body["posts"])
	assert.NotContains(t, body, "cached")
	source.AssertNotCalled(t, "Feed", mock.Anything)
}

func TestFeedHandler_MethodGates(t *testing.T) {
	source := new(MockFeedSource)
	h := NewFeedHandler(source, true, nil)

	t.Run("options", func(t *testing.T) {
		rec, _ := serveFeed(t, h, http.MethodOptions)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, rec.Body.Len())
	})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			rec, _ := serveFeed(t, h, method)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
		})
	}

	source.AssertNotCalled(t, "Feed", mock.Anything)
}

func TestFeedHandler_Envelopes(t *testing.T) {
	posts := []social.Post{testPost(social.PlatformFacebook, "1", "2025-01-03T00:00:00+0000")}

	t.Run("fresh", func(t *testing.T) {
		source := new(MockFeedSource)
		source.On("Feed", mock.Anything).Return(FeedResult{Posts: posts})

		rec, body := serveFeed(t, NewFeedHandler(source, true, nil), http.MethodGet)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, true, body["configured"])
		assert.Equal(t, false, body["cached"])
		assert.NotContains(t, body, "error")
		assert.Len(t, body["posts"], 1)
	})

	t.Run("cached", func(t *testing.T) {
		source := new(MockFeedSource)
		source.On("Feed", mock.Anything).Return(FeedResult{Posts: posts, Cached: true})

		_, body := serveFeed(t, NewFeedHandler(source, true, nil), http.MethodGet)
		assert.Equal(t, true, body["cached"])
	})

	t.Run("empty feed is a list", func(t *testing.T) {
		source := new(MockFeedSource)
		source.On("Feed", mock.Anything).Return(FeedResult{})

		_, body := serveFeed(t, NewFeedHandler(source, true, nil), http.MethodGet)
		assert.Equal(t, []any{}, body["posts"])
	})

	t.Run("degraded", func(t *testing.T) {
		source := new(MockFeedSource)
		source.On("Feed", mock.Anything).Return(FeedResult{Posts: posts, Err: errors.New("boom")})

		rec, body := serveFeed(t, NewFeedHandler(source, true, nil), http.MethodGet)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["configured"])
		assert.NotEmpty(t, body["error"])
		assert.NotContains(t, body, "cached")
		assert.Len(t, body["posts"], 1)
	})
}

func TestFeedHandler_PanicReturns500WithStaleCache(t *testing.T) {
	stale := []social.Post{testPost(social.PlatformInstagram, "stale", "2025-01-01T00:00:00+0000")}
	source := new(MockFeedSource)
	source.On("Feed", mock.Anything).Panic("handler bug")
	source.On("Snapshot").Return(stale)

	rec, body := serveFeed(t, NewFeedHandler(source, true, nil), http.MethodGet)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, "Failed to fetch social feed", body["error"])
	require.Len(t, body["posts"], 1)
	assert.Equal(t, "stale", body["posts"].([]any)[0].(map[string]any)["id"])
}
