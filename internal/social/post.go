package social

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Platform tags the network a post came from.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// MediaType classifies what a post displays.
type MediaType string

const (
	MediaImage    MediaType = "IMAGE"
	MediaVideo    MediaType = "VIDEO"
	MediaCarousel MediaType = "CAROUSEL_ALBUM"
	// MediaText is derived when a post has no media URL.
	MediaText MediaType = "TEXT"
)

// ErrInvalidPost is returned by Post.Validate.
var ErrInvalidPost = errors.New("invalid post")

var validate = validator.New()

// Post is a platform-neutral social media post. Message carries Facebook text
// and Caption carries Instagram text; at most one of them is set.
type Post struct {
	ID        string    `json:"id" validate:"required"`
	Platform  Platform  `json:"platform" validate:"required,oneof=facebook instagram"`
	Message   string    `json:"message,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	MediaURL  string    `json:"mediaUrl,omitempty" validate:"omitempty,url"`
	MediaType MediaType `json:"mediaType" validate:"required,oneof=IMAGE VIDEO CAROUSEL_ALBUM TEXT"`
	Permalink string    `json:"permalink" validate:"required,url"`
	Timestamp string    `json:"timestamp" validate:"required"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
}

// Validate checks the fields every served post must carry.
func (p Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w %s/%s: %v", ErrInvalidPost, p.Platform, p.ID, err)
	}
	return nil
}

// Text returns whichever of Message or Caption is set.
func (p Post) Text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Caption
}

// Time parses Timestamp. Unparseable values yield the zero time.
func (p Post) Time() time.Time {
	t, _ := ParseTimestamp(p.Timestamp)
	return t
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	// Graph API default, e.g. 2025-01-03T10:15:00+0000
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the ISO-8601 variants the Graph API emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
