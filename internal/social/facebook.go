package social

import "context"

const facebookFields = "id,message,full_picture,permalink_url,created_time,likes.summary(true),comments.summary(true)"

type facebookPost struct {
	ID           string        `json:"id"`
	Message      string        `json:"message"`
	FullPicture  string        `json:"full_picture"`
	PermalinkURL string        `json:"permalink_url"`
	CreatedTime  string        `json:"created_time"`
	Likes        *graphSummary `json:"likes"`
	Comments     *graphSummary `json:"comments"`
}

// FacebookFetcher lists a Page's recent posts.
type FacebookFetcher struct {
	opts   GraphOptions
	pageID string
}

func NewFacebookFetcher(opts GraphOptions, pageID string) *FacebookFetcher {
	return &FacebookFetcher{opts: opts.withDefaults(), pageID: pageID}
}

func (f *FacebookFetcher) Platform() Platform { return PlatformFacebook }

func (f *FacebookFetcher) Fetch(ctx context.Context) Result {
	return fetchPosts(ctx, f.opts, PlatformFacebook, f.pageID, "posts", facebookFields, normalizeFacebook)
}

// Facebook has no media type field; a picture means IMAGE.
func normalizeFacebook(raw facebookPost) Post {
	mediaType := MediaText
	if raw.FullPicture != "" {
		mediaType = MediaImage
	}
	return Post{
		ID:        raw.ID,
		Platform:  PlatformFacebook,
		Message:   raw.Message,
		MediaURL:  raw.FullPicture,
		MediaType: mediaType,
		Permalink: raw.PermalinkURL,
		Timestamp: raw.CreatedTime,
		Likes:     raw.Likes.count(),
		Comments:  raw.Comments.count(),
	}
}
