package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const userAgent = "Brand-Mentions-API/1.0"

// Source interface defines the contract for all post sources
type Source interface {
	GetName() string
	FetchPosts(ctx context.Context, keywords []string, since time.Time) ([]models.Post, error)
	IsEnabled() bool
}

// Default returns every built-in source
func Default(redditClientID, redditClientSecret string) []Source {
	return []Source{
		NewRedditSource(redditClientID, redditClientSecret),
		NewStackOverflowSource(),
		NewHackerNewsSource(),
	}
}

func newClient() *resty.Client {
	return resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
}

// getJSON decodes a successful response into out. Some APIs omit the JSON
// content type, so decoding is forced.
func getJSON(req *resty.Request, url string, out interface{}) error {
	resp, err := req.
		ForceContentType("application/json").
		SetResult(out).
		Get(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode())
	}
	return nil
}

type keywordSearch func(ctx context.Context, keyword string) ([]models.Post, error)

// searchEach runs search once per keyword. A failing keyword is logged and
// skipped; cancellation stops the loop.
func searchEach(ctx context.Context, source string, keywords []string, search keywordSearch) ([]models.Post, error) {
	var all []models.Post
	for _, keyword := range keywords {
		if err := ctx.Err(); err != nil {
			return deduplicatePosts(all), err
		}

		posts, err := search(ctx, keyword)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"source":  source,
				"keyword": keyword,
			}).WithError(err).Warn("Keyword search failed")
			continue
		}
		all = append(all, posts...)
	}
	return deduplicatePosts(all), nil
}

// containsAny reports whether text mentions any keyword, ignoring case.
func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// deduplicatePosts keeps the first post per source URL
func deduplicatePosts(posts []models.Post) []models.Post {
	seen := make(map[string]bool)
	var unique []models.Post

	for _, post := range posts {
		if !seen[post.SourceURL] {
			seen[post.SourceURL] = true
			unique = append(unique, post)
		}
	}

	return unique
}
