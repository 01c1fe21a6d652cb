package social

import "context"

const instagramFields = "id,caption,media_url,media_type,permalink,timestamp,like_count,comments_count"

type instagramMedia struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaURL      string `json:"media_url"`
	MediaType     string `json:"media_type"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
}

// InstagramFetcher lists an Instagram professional account's recent media.
type InstagramFetcher struct {
	opts   GraphOptions
	userID string
}

func NewInstagramFetcher(opts GraphOptions, userID string) *InstagramFetcher {
	return &InstagramFetcher{opts: opts.withDefaults(), userID: userID}
}

func (f *InstagramFetcher) Platform() Platform { return PlatformInstagram }

func (f *InstagramFetcher) Fetch(ctx context.Context) Result {
	return fetchPosts(ctx, f.opts, PlatformInstagram, f.userID, "media", instagramFields, normalizeInstagram)
}

func normalizeInstagram(raw instagramMedia) Post {
	return Post{
		ID:        raw.ID,
		Platform:  PlatformInstagram,
		Caption:   raw.Caption,
		MediaURL:  raw.MediaURL,
		MediaType: instagramMediaType(raw.MediaType, raw.MediaURL),
		Permalink: raw.Permalink,
		Timestamp: raw.Timestamp,
		Likes:     nonNegative(raw.LikeCount),
		Comments:  nonNegative(raw.CommentsCount),
	}
}

// Instagram reports its own type; anything outside the known set falls back
// to the Facebook rule.
func instagramMediaType(t, mediaURL string) MediaType {
	switch mt := MediaType(t); mt {
	case MediaImage, MediaVideo, MediaCarousel:
		return mt
	}
	if mediaURL != "" {
		return MediaImage
	}
	return MediaText
}
