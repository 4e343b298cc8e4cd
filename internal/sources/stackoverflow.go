package sources

import (
	"context"
	"html"
	"strconv"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/go-resty/resty/v2"
)

// StackOverflowSource searches Stack Overflow questions through the Stack
// Exchange API
type StackOverflowSource struct {
	client *resty.Client
	apiURL string
}

type stackOverflowQuestion struct {
	QuestionID   int      `json:"question_id"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Tags         []string `json:"tags"`
	CreationDate int64    `json:"creation_date"`
	Link         string   `json:"link"`
}

// NewStackOverflowSource creates a new Stack Overflow source
func NewStackOverflowSource() *StackOverflowSource {
	return &StackOverflowSource{
		client: newClient(),
		apiURL: "https://api.stackexchange.com/2.3",
	}
}

func (s *StackOverflowSource) GetName() string {
	return "stackoverflow"
}

// IsEnabled is always true; anonymous access is rate limited but allowed.
func (s *StackOverflowSource) IsEnabled() bool {
	return true
}

func (s *StackOverflowSource) FetchPosts(ctx context.Context, keywords []string, since time.Time) ([]models.Post, error) {
	return searchEach(ctx, s.GetName(), keywords, func(ctx context.Context, keyword string) ([]models.Post, error) {
		return s.questions(ctx, keyword, since)
	})
}

func (s *StackOverflowSource) questions(ctx context.Context, keyword string, since time.Time) ([]models.Post, error) {
	var result struct {
		Items []stackOverflowQuestion `json:"items"`
	}
	req := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        keyword,
			"site":     "stackoverflow",
			"sort":     "creation",
			"order":    "desc",
			"fromdate": strconv.FormatInt(since.Unix(), 10),
			"pagesize": "100",
			"filter":   "withbody",
		})
	if err := getJSON(req, s.apiURL+"/search/advanced", &result); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(result.Items))
	for _, q := range result.Items {
		// Titles arrive entity-encoded but carry no markup.
		title := html.UnescapeString(q.Title)
		body := htmlText(q.Body)
		if !containsAny(title+" "+body, []string{keyword}) {
			continue
		}

		posts = append(posts, models.Post{
			Title:       title,
			Content:     body,
			Source:      s.GetName(),
			SourceURL:   q.Link,
			Platform:    "Stack Overflow",
			PublishedAt: time.Unix(q.CreationDate, 0).UTC(),
		})
	}
	return posts, nil
}
