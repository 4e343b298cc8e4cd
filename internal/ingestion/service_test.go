package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/matching"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/monitoring"
	"github.com/azure/brand-mentions-api/internal/sources"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/azure/brand-mentions-api/internal/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name    string
	enabled bool
	posts   []models.Post
	err     error
	gotKeys []string
}

func (f *fakeSource) GetName() string { return f.name }
func (f *fakeSource) IsEnabled() bool { return f.enabled }

func (f *fakeSource) FetchPosts(ctx context.Context, keywords []string, since time.Time) ([]models.Post, error) {
	f.gotKeys = keywords
	return f.posts, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		IngestWindow:            24 * time.Hour,
		EnableSentimentAnalysis: true,
	}
}

func newService(t *testing.T, cfg *config.Config, srcs ...sources.Source) (*Service, *store.Store, *monitoring.Recorder) {
	t.Helper()
	s := storetest.Store(t)
	recorder := monitoring.NewRecorder()
	engine := matching.NewEngine(s, nil, recorder)
	return NewService(cfg, s, engine, recorder, srcs), s, recorder
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{text: "This works great, love it", expected: models.SentimentPositive},
		{text: "Broken again, terrible bug", expected: models.SentimentNegative},
		{text: "Released version 2", expected: models.SentimentNeutral},
		{text: "good but broken", expected: models.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
		})
	}
}

func TestIngest_LinksMatchingAlerts(t *testing.T) {
	svc, s, _ := newService(t, testConfig())
	ctx := context.Background()
	user := storetest.SeedUser(t, s, "alice", true)
	news := storetest.SeedAlert(t, s, user.ID, "news", []string{"flood", "fire"}, []string{"News"})
	storetest.SeedAlert(t, s, user.ID, "forum", []string{"fire"}, []string{"Forum"})

	published := time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)
	result, err := svc.Ingest(ctx, PostInput{
		Title:       "Warehouse fire",
		Content:     "A terrible fire broke out",
		SourceURL:   "https://news.example.com/fire",
		Platform:    " News ",
		PublishedAt: &published,
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{news.ID}, result.LinkedAlerts)
	assert.Equal(t, models.SentimentNegative, result.Post.Sentiment)
	assert.Equal(t, "News", result.Post.Platform)
	assert.True(t, published.Equal(result.Post.PublishedAt))

	got, err := s.Alerts.GetByID(ctx, nil, news.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PostCount)
}

func TestIngest_DuplicateSourceURL(t *testing.T) {
	svc, s, _ := newService(t, testConfig())
	ctx := context.Background()
	in := PostInput{Title: "one", SourceURL: "https://news.example.com/1", Platform: "News"}

	_, err := svc.Ingest(ctx, in)
	require.NoError(t, err)

	in.Title = "two"
	_, err = svc.Ingest(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	var count int64
	require.NoError(t, s.DB.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngest_Validation(t *testing.T) {
	svc, _, _ := newService(t, testConfig())

	tests := []struct {
		name  string
		input PostInput
	}{
		{name: "missing title", input: PostInput{SourceURL: "https://a.example.com", Platform: "News"}},
		{name: "bad url", input: PostInput{Title: "t", SourceURL: "not a url", Platform: "News"}},
		{name: "missing platform", input: PostInput{Title: "t", SourceURL: "https://a.example.com"}},
		{name: "bad sentiment", input: PostInput{Title: "t", SourceURL: "https://a.example.com", Platform: "News", Sentiment: "ANGRY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tt.input)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestIngest_SentimentDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableSentimentAnalysis = false
	svc, _, _ := newService(t, cfg)

	result, err := svc.Ingest(context.Background(), PostInput{
		Title: "great success", SourceURL: "https://a.example.com/1", Platform: "News",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNeutral, result.Post.Sentiment)
}

func TestDelete_DecrementsEveryLinkedAlert(t *testing.T) {
	svc, s, _ := newService(t, testConfig())
	ctx := context.Background()
	alice := storetest.SeedUser(t, s, "alice", true)
	bob := storetest.SeedUser(t, s, "bob", true)
	aliceAlert := storetest.SeedAlert(t, s, alice.ID, "a", []string{"fire"}, []string{"News"})
	bobAlert := storetest.SeedAlert(t, s, bob.ID, "b", []string{"fire"}, []string{"News"})
	other := storetest.SeedAlert(t, s, alice.ID, "other", []string{"x"}, []string{"News"})

	post := storetest.SeedPost(t, s, "fire", "", "News", time.Now())
	kept := storetest.SeedPost(t, s, "x", "", "News", time.Now())
	storetest.Link(t, s, aliceAlert.ID, post)
	storetest.Link(t, s, bobAlert.ID, post)
	storetest.Link(t, s, other.ID, kept)

	charlie := storetest.SeedUser(t, s, "charlie", true)
	err := svc.Delete(ctx, charlie.ID, post.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.Delete(ctx, alice.ID, post.ID))

	for _, id := range []uuid.UUID{aliceAlert.ID, bobAlert.ID} {
		got, err := s.Alerts.GetByID(ctx, nil, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.PostCount)
	}
	got, err := s.Alerts.GetByID(ctx, nil, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PostCount)

	_, err = s.Posts.GetByID(ctx, nil, post.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdate_RematchesPost(t *testing.T) {
	svc, s, _ := newService(t, testConfig())
	ctx := context.Background()
	user := storetest.SeedUser(t, s, "alice", true)
	fires := storetest.SeedAlert(t, s, user.ID, "fires", []string{"fire"}, []string{"News"})
	floods := storetest.SeedAlert(t, s, user.ID, "floods", []string{"flood"}, []string{"News"})

	post := storetest.SeedPost(t, s, "fire", "", "News", time.Now())
	storetest.Link(t, s, fires.ID, post)

	result, err := svc.Update(ctx, user.ID, post.ID, UpdateInput{Title: "fire and flood", Platform: "News"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{floods.ID}, result.LinkedAlerts)
	assert.Equal(t, "fire and flood", result.Post.Title)

	stored, err := s.Posts.GetByID(ctx, nil, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "fire and flood", stored.Title)
}

func TestPollSources(t *testing.T) {
	now := time.Now().UTC()
	good := &fakeSource{
		name:    "good",
		enabled: true,
		posts: []models.Post{
			{Title: "Acme is great", SourceURL: "https://a.example.com/1", Platform: "Reddit", PublishedAt: now},
			{Title: "Acme again", SourceURL: "https://a.example.com/dup", Platform: "Reddit", PublishedAt: now},
		},
	}
	failing := &fakeSource{name: "failing", enabled: true, err: errors.New("rate limited")}
	disabled := &fakeSource{name: "disabled", enabled: false, posts: []models.Post{{Title: "x"}}}
	skipped := &fakeSource{name: "skipped", enabled: true, posts: []models.Post{{Title: "y"}}}

	cfg := testConfig()
	cfg.DisabledSources = []string{"skipped"}
	svc, s, recorder := newService(t, cfg, good, failing, disabled, skipped)
	ctx := context.Background()

	user := storetest.SeedUser(t, s, "alice", true)
	alert := storetest.SeedAlert(t, s, user.ID, "acme", []string{"Acme", "acme ", "widget"}, []string{"Reddit"})
	storetest.SeedAlert(t, s, user.ID, "paused", []string{"ignored"}, []string{"Reddit"},
		storetest.WithStatus(models.AlertStatusInactive))
	storetest.SeedPost(t, s, "existing", "", "Reddit", now)
	require.NoError(t, s.DB.Model(&models.Post{}).Where("title = ?", "existing").
		Update("source_url", "https://a.example.com/dup").Error)

	result, err := svc.PollSources(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme", "widget"}, good.gotKeys)
	assert.Nil(t, disabled.gotKeys)
	assert.Nil(t, skipped.gotKeys)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, result.Errors)

	got, err := s.Alerts.GetByID(ctx, nil, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PostCount)

	snapshot := recorder.Snapshot()
	assert.Equal(t, 1, snapshot.PostsIngested)
	assert.Equal(t, 1, snapshot.DuplicatesSkipped)
	assert.Equal(t, 1, snapshot.SentimentBreakdown[models.SentimentPositive])
	assert.False(t, recorder.LastRunTime().IsZero())
}

func TestPollSources_NoActiveAlerts(t *testing.T) {
	src := &fakeSource{name: "good", enabled: true}
	svc, _, _ := newService(t, testConfig(), src)

	result, err := svc.PollSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fetched)
	assert.Nil(t, src.gotKeys)
}
