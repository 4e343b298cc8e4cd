// Package storetest provides an in-memory database and fixtures for tests
// of packages built on the store.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB opens a private in-memory SQLite database with the schema migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg := store.Config(false)
	cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	// One connection keeps the shared-cache database alive and serialises
	// writers.
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// Store opens DB and wraps it in a store.Store.
func Store(tb testing.TB) *store.Store {
	tb.Helper()
	return store.New(DB(tb))
}

func SeedUser(tb testing.TB, s *store.Store, username string, notify bool) *models.User {
	tb.Helper()
	u := &models.User{
		Username:             username,
		Email:                username + "@example.com",
		PasswordHash:         "hash",
		NotificationsEnabled: notify,
	}
	if err := s.Users.Create(context.Background(), nil, u); err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// AlertOption customises a seeded alert.
type AlertOption func(*models.Alert)

func WithStatus(status string) AlertOption {
	return func(a *models.Alert) { a.Status = status }
}

func WithSeverity(severity string) AlertOption {
	return func(a *models.Alert) { a.Severity = severity }
}

func WithCreatedAt(t time.Time) AlertOption {
	return func(a *models.Alert) { a.CreatedAt = t }
}

func WithDescription(description string) AlertOption {
	return func(a *models.Alert) { a.Description = description }
}

func SeedAlert(tb testing.TB, s *store.Store, userID uuid.UUID, title string, keywords, platforms []string, opts ...AlertOption) *models.Alert {
	tb.Helper()
	a := &models.Alert{
		Title:     title,
		Severity:  models.SeverityMedium,
		Status:    models.AlertStatusActive,
		Keywords:  keywords,
		Platforms: platforms,
		UserID:    userID,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := s.Alerts.Create(context.Background(), nil, a); err != nil {
		tb.Fatalf("seed alert: %v", err)
	}
	return a
}

func SeedPost(tb testing.TB, s *store.Store, title, content, platform string, publishedAt time.Time) *models.Post {
	tb.Helper()
	p := &models.Post{
		Title:       title,
		Content:     content,
		Source:      "test",
		SourceURL:   "https://example.com/" + uuid.NewString(),
		Sentiment:   models.SentimentNeutral,
		Platform:    platform,
		PublishedAt: publishedAt.UTC(),
	}
	if err := s.Posts.Create(context.Background(), nil, p); err != nil {
		tb.Fatalf("seed post: %v", err)
	}
	return p
}

// Link attaches posts to an alert and bumps its counter the way the
// matching engine does.
func Link(tb testing.TB, s *store.Store, alertID uuid.UUID, posts ...*models.Post) {
	tb.Helper()
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	ctx := context.Background()
	linked, err := s.Links.Link(ctx, nil, alertID, ids)
	if err != nil {
		tb.Fatalf("link posts: %v", err)
	}
	if err := s.Alerts.AddPostCount(ctx, nil, alertID, int64(len(linked))); err != nil {
		tb.Fatalf("bump post count: %v", err)
	}
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
