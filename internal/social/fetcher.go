package social

import (
	"context"
	"net/http"
)

// Result is the outcome of one platform fetch. A failed fetch carries Err and
// no posts; it is never returned as an error to the caller.
type Result struct {
	Platform Platform
	Posts    []Post
	Err      error
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Fetcher retrieves recent posts from one platform.
type Fetcher interface {
	Platform() Platform
	Fetch(ctx context.Context) Result
}

// Getter is the HTTP surface fetchers need. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error)
}
