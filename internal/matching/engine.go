// Package matching links posts to the alerts whose keyword and platform
// rules they satisfy and notifies alert owners about new links.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/monitoring"
	"github.com/azure/brand-mentions-api/internal/notifications"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultNotifyTimeout bounds one background dispatch.
const DefaultNotifyTimeout = 30 * time.Second

// ScanResult summarises matching one alert against a candidate set.
type ScanResult struct {
	AlertID     uuid.UUID `json:"alert_id"`
	Scanned     int       `json:"scanned"`
	Matched     int       `json:"matched"`
	NewlyLinked int       `json:"newly_linked"`
	PostCount   int64     `json:"post_count"`
}

// Engine runs scans and ingestion-time matching
type Engine struct {
	store         *store.Store
	dispatcher    notifications.Dispatcher
	recorder      *monitoring.Recorder
	notifyTimeout time.Duration
	wg            sync.WaitGroup
	log           *logrus.Entry
}

// NewEngine creates a matching engine. recorder may be nil.
func NewEngine(s *store.Store, dispatcher notifications.Dispatcher, recorder *monitoring.Recorder) *Engine {
	return &Engine{
		store:         s,
		dispatcher:    dispatcher,
		recorder:      recorder,
		notifyTimeout: DefaultNotifyTimeout,
		log:           logrus.WithField("component", "matching"),
	}
}

// Matches reports whether the post mentions at least one of the alert's
// keywords in its title or content and was published on one of the alert's
// platforms. Both comparisons ignore case.
func Matches(alert *models.Alert, post *models.Post) bool {
	return onPlatform(alert.Platforms, post.Platform) && mentions(alert.Keywords, post.Title+" "+post.Content)
}

func mentions(keywords []string, text string) bool {
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func onPlatform(platforms []string, platform string) bool {
	platform = strings.TrimSpace(platform)
	for _, p := range platforms {
		if strings.EqualFold(strings.TrimSpace(p), platform) {
			return true
		}
	}
	return false
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ScanAlert matches one active alert owned by userID against every post
// published since the start of the alert's creation month.
func (e *Engine) ScanAlert(ctx context.Context, userID, alertID uuid.UUID) (*ScanResult, error) {
	alert, err := e.store.Alerts.GetOwned(ctx, nil, userID, alertID)
	if err != nil {
		return nil, err
	}
	if !alert.IsActive() {
		return nil, apperr.Precondition("alert %s is not active", alert.ID)
	}

	since := MonthStart(alert.CreatedAt)
	candidates, err := e.store.Posts.ListPublishedSince(ctx, nil, &since)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan candidates: %w", err)
	}

	result, fresh, err := e.apply(ctx, alert, candidates)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"alert_id":     alert.ID,
		"scanned":      result.Scanned,
		"matched":      result.Matched,
		"newly_linked": result.NewlyLinked,
	}).Info("Scanned alert")

	if len(fresh) > 0 {
		owner, err := e.store.Users.GetByID(ctx, nil, alert.UserID)
		if err != nil {
			e.log.WithError(err).WithField("alert_id", alert.ID).Error("Failed to load alert owner")
		} else {
			e.notify(owner, *alert, fresh)
		}
	}

	return &result, nil
}

// ScanAllActive matches every active alert of the user against every post.
// A failing alert does not stop the others; their errors are joined.
func (e *Engine) ScanAllActive(ctx context.Context, userID uuid.UUID) ([]ScanResult, error) {
	alerts, err := e.store.Alerts.ListActiveByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active alerts: %w", err)
	}
	if len(alerts) == 0 {
		return []ScanResult{}, nil
	}

	candidates, err := e.store.Posts.ListPublishedSince(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan candidates: %w", err)
	}

	owner, err := e.store.Users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	results := make([]ScanResult, 0, len(alerts))
	var errs []error
	for i := range alerts {
		alert := &alerts[i]
		result, fresh, err := e.apply(ctx, alert, candidates)
		if err != nil {
			e.log.WithError(err).WithField("alert_id", alert.ID).Error("Failed to scan alert")
			errs = append(errs, fmt.Errorf("alert %s: %w", alert.ID, err))
			continue
		}
		results = append(results, result)
		if len(fresh) > 0 {
			e.notify(owner, *alert, fresh)
		}
	}

	e.log.WithFields(logrus.Fields{
		"user_id": userID,
		"alerts":  len(alerts),
		"posts":   len(candidates),
		"failed":  len(errs),
	}).Info("Scanned all active alerts")

	return results, errors.Join(errs...)
}

// MatchPost links a newly stored post to every active alert it matches,
// across all users, and returns the ids of the alerts it was linked to.
func (e *Engine) MatchPost(ctx context.Context, post *models.Post) ([]uuid.UUID, error) {
	alerts, err := e.store.Alerts.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load active alerts: %w", err)
	}

	var matched []*models.Alert
	for i := range alerts {
		if Matches(&alerts[i], post) {
			matched = append(matched, &alerts[i])
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	owners, err := e.owners(ctx, matched)
	if err != nil {
		e.log.WithError(err).Error("Failed to load alert owners")
	}

	var linked []uuid.UUID
	var errs []error
	for _, alert := range matched {
		_, fresh, err := e.apply(ctx, alert, []models.Post{*post})
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"alert_id": alert.ID,
				"post_id":  post.ID,
			}).Error("Failed to link post")
			errs = append(errs, fmt.Errorf("alert %s: %w", alert.ID, err))
			continue
		}
		if len(fresh) == 0 {
			continue
		}
		linked = append(linked, alert.ID)
		if owner, ok := owners[alert.UserID]; ok {
			e.notify(owner, *alert, fresh)
		}
	}

	return linked, errors.Join(errs...)
}

// Recount reconciles every alert's post counter with its links.
func (e *Engine) Recount(ctx context.Context) (int64, error) {
	fixed, err := e.store.Alerts.RecountAll(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to recount alerts: %w", err)
	}
	return fixed, nil
}

// Wait blocks until every background notification has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// apply links the candidates that match the alert and bumps its counter by
// the number of new links in one transaction.
func (e *Engine) apply(ctx context.Context, alert *models.Alert, candidates []models.Post) (ScanResult, []models.Post, error) {
	result := ScanResult{AlertID: alert.ID, Scanned: len(candidates)}

	byID := make(map[uuid.UUID]models.Post)
	var ids []uuid.UUID
	for i := range candidates {
		if Matches(alert, &candidates[i]) {
			byID[candidates[i].ID] = candidates[i]
			ids = append(ids, candidates[i].ID)
		}
	}
	result.Matched = len(ids)

	var fresh []uuid.UUID
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		fresh, err = e.store.Links.Link(ctx, tx, alert.ID, ids)
		if err != nil {
			return fmt.Errorf("failed to link posts: %w", err)
		}
		if err := e.store.Alerts.AddPostCount(ctx, tx, alert.ID, int64(len(fresh))); err != nil {
			return fmt.Errorf("failed to update post count: %w", err)
		}
		current, err := e.store.Alerts.GetByID(ctx, tx, alert.ID)
		if err != nil {
			return err
		}
		alert.PostCount = current.PostCount
		return nil
	})
	if err != nil {
		return result, nil, err
	}

	result.NewlyLinked = len(fresh)
	result.PostCount = alert.PostCount
	if e.recorder != nil && len(fresh) > 0 {
		e.recorder.LinksCreated(len(fresh))
	}

	posts := make([]models.Post, 0, len(fresh))
	for _, id := range fresh {
		posts = append(posts, byID[id])
	}
	return result, posts, nil
}

func (e *Engine) owners(ctx context.Context, alerts []*models.Alert) (map[uuid.UUID]*models.User, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range alerts {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}

	users, err := e.store.Users.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	owners := make(map[uuid.UUID]*models.User, len(users))
	for i := range users {
		owners[users[i].ID] = &users[i]
	}
	return owners, nil
}

// notify hands new links to the dispatcher in the background. The caller's
// context is not used so a finished request does not cancel delivery.
func (e *Engine) notify(owner *models.User, alert models.Alert, posts []models.Post) {
	if e.dispatcher == nil || !owner.NotificationsEnabled {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()

		err := e.dispatcher.NotifyMatches(ctx, owner, &alert, posts)
		if e.recorder != nil {
			e.recorder.NotificationResult(err)
		}
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"alert_id": alert.ID,
				"user_id":  owner.ID,
			}).Error("Failed to notify alert owner")
		}
	}()
}
