package social

import (
	"slices"
	"time"
)

// Merge concatenates the posts of successful results, orders them newest
// first and keeps at most max of them (max <= 0 means no cap). Equal
// timestamps keep their input order. The result is never nil.
func Merge(max int, results ...Result) []Post {
	type keyed struct {
		post Post
		at   time.Time
	}

	var all []keyed
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, p := range r.Posts {
			all = append(all, keyed{post: p, at: p.Time()})
		}
	}

	slices.SortStableFunc(all, func(a, b keyed) int {
		return b.at.Compare(a.at)
	})

	if max > 0 && len(all) > max {
		all = all[:max]
	}

	posts := make([]Post, len(all))
	for i, k := range all {
		posts[i] = k.post
	}
	return posts
}
