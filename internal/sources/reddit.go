package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RedditSource searches all of Reddit with application-only OAuth
type RedditSource struct {
	clientID     string
	clientSecret string
	client       *resty.Client
	authURL      string
	apiURL       string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type redditToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(clientID, clientSecret string) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       newClient(),
		authURL:      "https://www.reddit.com/api/v1/access_token",
		apiURL:       "https://oauth.reddit.com",
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) FetchPosts(ctx context.Context, keywords []string, since time.Time) ([]models.Post, error) {
	if !r.IsEnabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	return searchEach(ctx, r.GetName(), keywords, func(ctx context.Context, keyword string) ([]models.Post, error) {
		return r.search(ctx, token, keyword, since)
	})
}

// accessToken returns the cached client-credentials token, refreshing it a
// minute before it expires.
func (r *RedditSource) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.expiresAt) {
		return r.token, nil
	}

	var grant redditToken
	resp, err := r.client.R().
		SetContext(ctx).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		ForceContentType("application/json").
		SetResult(&grant).
		Post(r.authURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}
	if grant.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	r.token = grant.AccessToken
	r.expiresAt = time.Now().Add(time.Duration(grant.ExpiresIn)*time.Second - time.Minute)
	return r.token, nil
}

func (r *RedditSource) search(ctx context.Context, token, keyword string, since time.Time) ([]models.Post, error) {
	var listing redditListing
	req := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":     keyword,
			"sort":  "new",
			"limit": "100",
		})
	if err := getJSON(req, r.apiURL+"/search.json", &listing); err != nil {
		return nil, err
	}

	var posts []models.Post
	for _, child := range listing.Data.Children {
		item := child.Data
		published := time.Unix(int64(item.CreatedUTC), 0).UTC()
		if published.Before(since) || !containsAny(item.Title+" "+item.Selftext, []string{keyword}) {
			continue
		}

		posts = append(posts, models.Post{
			Title:       item.Title,
			Content:     item.Selftext,
			Source:      "r/" + item.Subreddit,
			SourceURL:   "https://reddit.com" + item.Permalink,
			Platform:    "Reddit",
			PublishedAt: published,
		})
	}
	return posts, nil
}
