package app

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/feeds"
	"go.uber.org/zap"

	"socialfeed/internal/social"
)

const (
	rssTitleRunes = 80
	feedPath      = "/api/social-feed"
)

// RSSHandler renders the merged feed as RSS 2.0, or Atom with ?format=atom.
type RSSHandler struct {
	Source     FeedSource
	Configured bool
	Title      string
	Link       string
	Logger     *zap.Logger
	Now        func() time.Time
}

func (h *RSSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	posts := []social.Post{}
	if h.Configured {
		res := h.Source.Feed(r.Context())
		if res.Err != nil {
			h.Logger.Warn("RSS export serving stale posts", zap.Error(res.Err))
		}
		posts = nonNil(res.Posts)
	}

	// Never built from r.Host: the response is publicly cached.
	link := h.Link
	if link == "" {
		link = feedPath
	}
	feed := buildFeed(h.Title, link, posts, h.Now())

	var (
		body        string
		err         error
		contentType string
	)
	if r.URL.Query().Get("format") == "atom" {
		body, err = feed.ToAtom()
		contentType = "application/atom+xml; charset=utf-8"
	} else {
		body, err = feed.ToRss()
		contentType = "application/rss+xml; charset=utf-8"
	}
	if err != nil {
		h.Logger.Error("Failed to generate feed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate feed"})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write([]byte(body))
}

// buildFeed maps posts onto a gorilla/feeds channel, keeping their order.
func buildFeed(title, link string, posts []social.Post, now time.Time) *feeds.Feed {
	out := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "Latest posts from our Facebook and Instagram accounts",
		Id:          link,
		Created:     now,
	}

	for _, p := range posts {
		created := p.Time()
		if created.IsZero() {
			created = now
		}
		item := &feeds.Item{
			Id:          string(p.Platform) + ":" + p.ID,
			Title:       itemTitle(p),
			Link:        &feeds.Link{Href: p.Permalink},
			Description: p.Text(),
			Created:     created,
		}
		if p.MediaURL != "" {
			item.Enclosure = &feeds.Enclosure{
				Url:    p.MediaURL,
				Type:   enclosureType(p.MediaType),
				Length: "0",
			}
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func itemTitle(p social.Post) string {
	text := strings.TrimSpace(p.Text())
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		name := "Facebook"
		if p.Platform == social.PlatformInstagram {
			name = "Instagram"
		}
		return "New " + name + " post"
	}
	if utf8.RuneCountInString(text) > rssTitleRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:rssTitleRunes])) + "..."
	}
	return text
}

func enclosureType(t social.MediaType) string {
	if t == social.MediaVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}
