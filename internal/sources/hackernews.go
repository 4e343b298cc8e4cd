package sources

import (
	"context"
	"strconv"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/go-resty/resty/v2"
)

// HackerNewsSource searches Hacker News stories through the Algolia API
type HackerNewsSource struct {
	client *resty.Client
	apiURL string
}

type hackerNewsHit struct {
	ObjectID  string `json:"objectID"`
	Title     string `json:"title"`
	StoryText string `json:"story_text"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"created_at_i"`
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource() *HackerNewsSource {
	return &HackerNewsSource{
		client: newClient(),
		apiURL: "https://hn.algolia.com/api/v1",
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

// IsEnabled is always true; the search API is public.
func (h *HackerNewsSource) IsEnabled() bool {
	return true
}

func (h *HackerNewsSource) FetchPosts(ctx context.Context, keywords []string, since time.Time) ([]models.Post, error) {
	return searchEach(ctx, h.GetName(), keywords, func(ctx context.Context, keyword string) ([]models.Post, error) {
		return h.stories(ctx, keyword, since)
	})
}

func (h *HackerNewsSource) stories(ctx context.Context, keyword string, since time.Time) ([]models.Post, error) {
	var result struct {
		Hits []hackerNewsHit `json:"hits"`
	}
	req := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":          keyword,
			"tags":           "story",
			"numericFilters": "created_at_i>=" + strconv.FormatInt(since.Unix(), 10),
			"hitsPerPage":    "100",
		})
	if err := getJSON(req, h.apiURL+"/search_by_date", &result); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if hit.Title == "" || hit.CreatedAt == 0 {
			continue
		}
		published := time.Unix(hit.CreatedAt, 0).UTC()
		if published.Before(since) {
			continue
		}

		posts = append(posts, models.Post{
			Title:       hit.Title,
			Content:     htmlText(hit.StoryText),
			Source:      h.GetName(),
			SourceURL:   "https://news.ycombinator.com/item?id=" + hit.ObjectID,
			Platform:    "Hacker News",
			PublishedAt: published,
		})
	}
	return posts, nil
}
