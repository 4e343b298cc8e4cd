package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedditSource_GetName(t *testing.T) {
	source := NewRedditSource("client_id", "client_secret")
	assert.Equal(t, "reddit", source.GetName())
}

func TestRedditSource_IsEnabled(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		expected     bool
	}{
		{
			name:         "Both credentials provided",
			clientID:     "client_id",
			clientSecret: "client_secret",
			expected:     true,
		},
		{
			name:         "Missing client ID",
			clientID:     "",
			clientSecret: "client_secret",
			expected:     false,
		},
		{
			name:         "Missing client secret",
			clientID:     "client_id",
			clientSecret: "",
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRedditSource(tt.clientID, tt.clientSecret)
			assert.Equal(t, tt.expected, source.IsEnabled())
		})
	}
}

func TestRedditSource_FetchPosts(t *testing.T) {
	now := time.Now().UTC()
	authCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"data":{"children":[
			{"data":{"id":"a","title":"Acme rocks","selftext":"","subreddit":"brands","permalink":"/r/brands/a","created_utc":%d}},
			{"data":{"id":"b","title":"Old acme","selftext":"","subreddit":"brands","permalink":"/r/brands/b","created_utc":%d}},
			{"data":{"id":"c","title":"Unrelated","selftext":"","subreddit":"misc","permalink":"/r/misc/c","created_utc":%d}}
		]}}`, now.Unix(), now.Add(-72*time.Hour).Unix(), now.Unix())
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	source := NewRedditSource("id", "secret")
	source.authURL = server.URL + "/token"
	source.apiURL = server.URL

	posts, err := source.FetchPosts(context.Background(), []string{"acme", "ACME"}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, "Acme rocks", posts[0].Title)
	assert.Equal(t, "Reddit", posts[0].Platform)
	assert.Equal(t, "r/brands", posts[0].Source)
	assert.Equal(t, "https://reddit.com/r/brands/a", posts[0].SourceURL)
	assert.Equal(t, 1, authCalls, "token is cached across keywords")
}

func TestRedditSource_DisabledReturnsNothing(t *testing.T) {
	posts, err := NewRedditSource("", "").FetchPosts(context.Background(), []string{"acme"}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestHackerNewsSource_FetchPosts(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search_by_date", r.URL.Path)
		assert.Equal(t, "story", r.URL.Query().Get("tags"))
		fmt.Fprintf(w, `{"hits":[
			{"objectID":"1","title":"Show HN: Acme","story_text":"<p>We built &amp; shipped</p>","created_at_i":%d},
			{"objectID":"2","title":"","created_at_i":%d}
		]}`, now.Unix(), now.Unix())
	}))
	defer server.Close()

	source := NewHackerNewsSource()
	source.apiURL = server.URL

	posts, err := source.FetchPosts(context.Background(), []string{"acme"}, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hacker News", posts[0].Platform)
	assert.Equal(t, "We built & shipped", posts[0].Content)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", posts[0].SourceURL)
}

func TestStackOverflowSource_FetchPosts(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme", r.URL.Query().Get("q"))
		fmt.Fprintf(w, `{"items":[
			{"question_id":7,"title":"Acme SDK &quot;timeout&quot;","body":"<p>Use <code>acme.Dial</code></p>","creation_date":%d,"link":"https://stackoverflow.com/q/7"}
		]}`, now.Unix())
	}))
	defer server.Close()

	source := NewStackOverflowSource()
	source.apiURL = server.URL

	posts, err := source.FetchPosts(context.Background(), []string{"acme"}, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, `Acme SDK "timeout"`, posts[0].Title)
	assert.Equal(t, "Use `acme.Dial`", posts[0].Content)
	assert.Equal(t, "Stack Overflow", posts[0].Platform)
}

func TestStackOverflowSource_ErrorStatusSkipsKeyword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := NewStackOverflowSource()
	source.apiURL = server.URL

	posts, err := source.FetchPosts(context.Background(), []string{"acme"}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestHTMLText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Basic HTML tags",
			input:    "<p>Hello <strong>world</strong></p>",
			expected: "Hello world",
		},
		{
			name:     "Code tags",
			input:    "Use <code>kubectl apply</code> to deploy",
			expected: "Use `kubectl apply` to deploy",
		},
		{
			name:     "Line breaks",
			input:    "Line 1<br>Line 2<br/>Line 3",
			expected: "Line 1\nLine 2\nLine 3",
		},
		{
			name:     "Entities",
			input:    "Tom &amp; Jerry",
			expected: "Tom & Jerry",
		},
		{
			name:     "Scripts dropped",
			input:    "<div>Safe</div><script>alert(1)</script>",
			expected: "Safe",
		},
		{
			name:     "Plain text",
			input:    "no markup here",
			expected: "no markup here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, htmlText(tt.input))
		})
	}
}

func TestDeduplicatePosts(t *testing.T) {
	posts := []models.Post{
		{SourceURL: "https://a", Title: "First"},
		{SourceURL: "https://b", Title: "Second"},
		{SourceURL: "https://a", Title: "Duplicate"},
	}

	unique := deduplicatePosts(posts)

	require.Len(t, unique, 2)
	assert.Equal(t, "First", unique[0].Title)
	assert.Equal(t, "Second", unique[1].Title)
}
