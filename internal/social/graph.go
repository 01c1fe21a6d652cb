package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"socialfeed/internal/metrics"
)

// ErrUpstreamStatus marks a non-2xx Graph API response.
var ErrUpstreamStatus = errors.New("upstream returned error status")

const maxResponseBytes = 2 << 20

// GraphOptions configures access to the Graph API shared by both fetchers.
type GraphOptions struct {
	Client  Getter
	BaseURL string
	Token   string
	// Limit caps the page size requested from each platform.
	Limit int
	// Timeout bounds each upstream call, retries included.
	Timeout time.Duration
	Logger  *zap.Logger
}

// StatusError describes a Graph API error response.
type StatusError struct {
	StatusCode int
	Type       string
	Code       int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph api status %d: %s (%s, code %d)", e.StatusCode, e.Message, e.Type, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

type graphErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type graphPage[T any] struct {
	Data []T `json:"data"`
}

type graphSummary struct {
	Summary struct {
		TotalCount int `json:"total_count"`
	} `json:"summary"`
}

func (s *graphSummary) count() int {
	if s == nil {
		return 0
	}
	return nonNegative(s.Summary.TotalCount)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// list GETs /{accountID}/{edge}?fields=...&limit=... and decodes the body into dst.
func list(ctx context.Context, opts GraphOptions, accountID, edge, fields string, dst any) error {
	endpoint, err := url.JoinPath(opts.BaseURL, accountID, edge)
	if err != nil {
		return fmt.Errorf("build %s url: %w", edge, err)
	}
	q := url.Values{}
	q.Set("fields", fields)
	q.Set("limit", strconv.Itoa(opts.Limit))
	endpoint += "?" + q.Encode()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	resp, err := opts.Client.Get(ctx, endpoint, map[string]string{
		"Authorization": "Bearer " + opts.Token,
		"Accept":        "application/json",
	})
	if err != nil {
		return fmt.Errorf("request %s: %w", edge, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", edge, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope graphErrorEnvelope
		if json.Unmarshal(body, &envelope) == nil {
			statusErr.Message = envelope.Error.Message
			statusErr.Type = envelope.Error.Type
			statusErr.Code = envelope.Error.Code
		}
		return statusErr
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", edge, err)
	}
	return nil
}

// fetchPosts runs one Graph API listing and normalizes every entry. Failures
// are logged and folded into the Result.
func fetchPosts[T any](ctx context.Context, opts GraphOptions, platform Platform, accountID, edge, fields string, normalize func(T) Post) Result {
	log := opts.Logger.With(zap.String("platform", string(platform)))
	start := time.Now()

	var page graphPage[T]
	err := list(ctx, opts, accountID, edge, fields, &page)
	metrics.RecordUpstream(string(platform), err, time.Since(start))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			log.Error("Graph API error",
				zap.Int("status", statusErr.StatusCode),
				zap.String("type", statusErr.Type),
				zap.Int("code", statusErr.Code),
				zap.String("message", statusErr.Message),
			)
		} else {
			log.Error("Error fetching posts", zap.Error(err))
		}
		return Result{Platform: platform, Posts: []Post{}, Err: err}
	}

	posts := make([]Post, 0, len(page.Data))
	for _, raw := range page.Data {
		p := normalize(raw)
		if err := p.Validate(); err != nil {
			log.Warn("Skipping post", zap.String("id", p.ID), zap.Error(err))
			metrics.RecordInvalidPost(string(platform))
			continue
		}
		posts = append(posts, p)
	}

	log.Debug("Fetched posts", zap.Int("count", len(posts)), zap.Duration("took", time.Since(start)))
	return Result{Platform: platform, Posts: posts}
}

func (o GraphOptions) withDefaults() GraphOptions {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Limit <= 0 {
		o.Limit = 6
	}
	return o
}
