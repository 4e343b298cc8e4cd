// Package ingestion stores new posts and hands them to alert matching,
// whether they arrive through the API or from polled sources.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/monitoring"
	"github.com/azure/brand-mentions-api/internal/sources"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/azure/brand-mentions-api/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Matcher links a stored post to the active alerts it satisfies
type Matcher interface {
	MatchPost(ctx context.Context, post *models.Post) ([]uuid.UUID, error)
}

// PostInput is a post submitted through the API. A missing sentiment is
// classified from the text; a missing publication time means now.
type PostInput struct {
	Title       string     `json:"title" validate:"required"`
	Content     string     `json:"content"`
	Source      string     `json:"source" validate:"max=64"`
	SourceURL   string     `json:"source_url" validate:"required,url,max=2048"`
	Platform    string     `json:"platform" validate:"required,max=64"`
	Sentiment   string     `json:"sentiment" validate:"omitempty,oneof=POSITIVE NEGATIVE NEUTRAL"`
	PublishedAt *time.Time `json:"published_at"`
}

// UpdateInput holds the editable fields of a post. The source URL is its
// identity and cannot change.
type UpdateInput struct {
	Title       string     `json:"title" validate:"required"`
	Content     string     `json:"content"`
	Source      string     `json:"source" validate:"max=64"`
	Platform    string     `json:"platform" validate:"required,max=64"`
	Sentiment   string     `json:"sentiment" validate:"omitempty,oneof=POSITIVE NEGATIVE NEUTRAL"`
	PublishedAt *time.Time `json:"published_at"`
}

// Result reports a stored post and the alerts it was linked to.
type Result struct {
	Post         *models.Post `json:"post"`
	LinkedAlerts []uuid.UUID  `json:"linked_alerts"`
}

// PollResult summarises one polling run over the external sources.
type PollResult struct {
	Fetched    int           `json:"fetched"`
	Stored     int           `json:"stored"`
	Duplicates int           `json:"duplicates"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// Service handles post ingestion
type Service struct {
	config   *config.Config
	store    *store.Store
	matcher  Matcher
	recorder *monitoring.Recorder
	sources  []sources.Source
	log      *logrus.Entry
}

// NewService creates an ingestion service polling the given sources.
func NewService(cfg *config.Config, s *store.Store, matcher Matcher, recorder *monitoring.Recorder, srcs []sources.Source) *Service {
	return &Service{
		config:   cfg,
		store:    s,
		matcher:  matcher,
		recorder: recorder,
		sources:  srcs,
		log:      logrus.WithField("component", "ingestion"),
	}
}

func (s *Service) sentiment(given, title, content string) string {
	if given != "" {
		return given
	}
	if s.config.EnableSentimentAnalysis {
		return Classify(title + " " + content)
	}
	return models.SentimentNeutral
}

// Ingest stores a new post and links it to every matching active alert
// before returning. A post whose source URL is already stored is a conflict.
func (s *Service) Ingest(ctx context.Context, in PostInput) (*Result, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.SourceURL = strings.TrimSpace(in.SourceURL)
	in.Platform = strings.TrimSpace(in.Platform)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		Source:    in.Source,
		SourceURL: in.SourceURL,
		Platform:  in.Platform,
		Sentiment: s.sentiment(in.Sentiment, in.Title, in.Content),
	}
	post.PublishedAt = time.Now().UTC()
	if in.PublishedAt != nil {
		post.PublishedAt = in.PublishedAt.UTC()
	}

	linked, err := s.persist(ctx, post)
	if err != nil {
		return nil, err
	}
	return &Result{Post: post, LinkedAlerts: linked}, nil
}

// persist stores the post and runs matching. Matching failures are logged;
// the post stays stored and later scans pick it up.
func (s *Service) persist(ctx context.Context, post *models.Post) ([]uuid.UUID, error) {
	exists, err := s.store.Posts.SourceURLExists(ctx, nil, post.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check source URL: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("a post with source URL %s already exists", post.SourceURL)
	}

	if err := s.store.Posts.Create(ctx, nil, post); err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.PostIngested(post)
	}

	linked, err := s.matcher.MatchPost(ctx, post)
	if err != nil {
		s.log.WithError(err).WithField("post_id", post.ID).Error("Failed to match post")
	}

	s.log.WithFields(logrus.Fields{
		"post_id":  post.ID,
		"platform": post.Platform,
		"alerts":   len(linked),
	}).Info("Ingested post")

	if linked == nil {
		linked = []uuid.UUID{}
	}
	return linked, nil
}

// Update edits a post visible to the user and matches it again so alerts
// that now apply are linked. Existing links are kept.
func (s *Service) Update(ctx context.Context, userID, postID uuid.UUID, in UpdateInput) (*Result, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Platform = strings.TrimSpace(in.Platform)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	post, err := s.store.Posts.GetVisible(ctx, nil, userID, postID)
	if err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Content = in.Content
	post.Source = in.Source
	post.Platform = in.Platform
	post.Sentiment = s.sentiment(in.Sentiment, in.Title, in.Content)
	if in.PublishedAt != nil {
		post.PublishedAt = in.PublishedAt.UTC()
	}

	if err := s.store.Posts.Update(ctx, nil, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	linked, err := s.matcher.MatchPost(ctx, post)
	if err != nil {
		s.log.WithError(err).WithField("post_id", post.ID).Error("Failed to match updated post")
	}
	if linked == nil {
		linked = []uuid.UUID{}
	}
	return &Result{Post: post, LinkedAlerts: linked}, nil
}

// Delete removes a post visible to the user. Every alert it was linked to
// loses one from its counter in the same transaction.
func (s *Service) Delete(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.store.Posts.GetVisible(ctx, nil, userID, postID)
	if err != nil {
		return err
	}

	var alertIDs []uuid.UUID
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		ids, err := s.store.Links.AlertIDsForPost(ctx, tx, post.ID)
		if err != nil {
			return err
		}
		alertIDs = ids
		if err := s.store.Links.UnlinkPost(ctx, tx, post.ID); err != nil {
			return err
		}
		for _, alertID := range alertIDs {
			if err := s.store.Alerts.AddPostCount(ctx, tx, alertID, -1); err != nil {
				return err
			}
		}
		return s.store.Posts.Delete(ctx, tx, post.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"post_id": post.ID,
		"alerts":  len(alertIDs),
	}).Info("Deleted post")
	return nil
}

// keywords collects the distinct keywords of every active alert.
func (s *Service) keywords(ctx context.Context) ([]string, error) {
	alerts, err := s.store.Alerts.ListActive(ctx, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, alert := range alerts {
		for _, keyword := range alert.Keywords {
			keyword = strings.TrimSpace(keyword)
			key := strings.ToLower(keyword)
			if keyword == "" || seen[key] {
				continue
			}
			seen[key] = true
			keywords = append(keywords, keyword)
		}
	}
	return keywords, nil
}

// PollSources fetches recent posts for the active alerts' keywords from
// every enabled source concurrently and ingests them. Already stored posts
// are skipped.
func (s *Service) PollSources(ctx context.Context) (*PollResult, error) {
	start := time.Now()
	logrus.Info("Starting source polling run")

	keywords, err := s.keywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect alert keywords: %w", err)
	}
	if len(keywords) == 0 {
		logrus.Info("No active alert keywords, skipping poll")
		return &PollResult{}, nil
	}

	since := time.Now().Add(-s.config.IngestWindow).UTC()
	logrus.Infof("Searching %d sources for %d keywords since %s", len(s.sources), len(keywords), since.Format(time.RFC3339))

	var wg sync.WaitGroup
	postsChan := make(chan []models.Post, len(s.sources))
	errorsChan := make(chan error, len(s.sources))

	for _, source := range s.sources {
		if !source.IsEnabled() || s.config.SourceDisabled(source.GetName()) {
			logrus.Debugf("Skipping source %s", source.GetName())
			continue
		}

		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			posts, err := src.FetchPosts(ctx, keywords, since)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Infof("Found %d posts from %s", len(posts), src.GetName())
			postsChan <- posts
		}(source)
	}

	go func() {
		wg.Wait()
		close(postsChan)
		close(errorsChan)
	}()

	var fetched []models.Post
	for posts := range postsChan {
		fetched = append(fetched, posts...)
	}

	result := &PollResult{Fetched: len(fetched)}
	for range errorsChan {
		result.Errors++
	}

	for i := range fetched {
		post := fetched[i]
		post.Sentiment = s.sentiment(post.Sentiment, post.Title, post.Content)

		if _, err := s.persist(ctx, &post); err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				result.Duplicates++
				if s.recorder != nil {
					s.recorder.DuplicateSkipped()
				}
				continue
			}
			result.Errors++
			s.log.WithError(err).WithField("source_url", post.SourceURL).Error("Failed to store polled post")
			continue
		}
		result.Stored++
	}

	result.Duration = time.Since(start)
	if s.recorder != nil {
		s.recorder.RunCompleted(result.Duration, result.Errors)
	}

	logrus.Infof("Polling run completed in %v: %d fetched, %d stored, %d duplicates",
		result.Duration, result.Fetched, result.Stored, result.Duplicates)
	return result, nil
}
