// Package filtering serves the paginated, searchable list views over alerts,
// posts and case studies.
//
// Scalar conditions are pushed to the database. The full matching set is
// then loaded, narrowed in memory by the compiled search expression and any
// list-field filters, and only then paginated, so totals and page
// boundaries always reflect every filter.
package filtering

import (
	"context"
	"fmt"

	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/query"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/google/uuid"
)

// ListParams carries the list query parameters shared by every view.
// Empty multi-value filters do not restrict the result.
type ListParams struct {
	Page       int
	Limit      int
	Search     string
	Fields     []string
	Statuses   []string
	Severities []string
	Platforms  []string
	Sentiments []string
	AlertID    *uuid.UUID
}

// AlertDetail is an alert with a filtered page of its posts.
type AlertDetail struct {
	Alert *models.Alert      `json:"alert"`
	Posts Page[models.Post] `json:"posts"`
}

// Service handles filtered list queries
type Service struct {
	store        *store.Store
	defaultLimit int
	maxLimit     int
}

// NewService creates a new filtering service
func NewService(s *store.Store, cfg *config.Config) *Service {
	return &Service{
		store:        s,
		defaultLimit: cfg.DefaultPageSize,
		maxLimit:     cfg.MaxPageSize,
	}
}

func (s *Service) bounds(p ListParams) (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	return page, limit
}

// anyOf restricts field to values, or matches everything when values is empty.
func anyOf(field string, values []string) query.Predicate {
	if len(values) == 0 {
		return query.True()
	}
	return query.In(field, values...)
}

// anyPlatform restricts field to platforms the way alert matching compares
// them, ignoring case and surrounding spaces.
func anyPlatform(field string, platforms []string) query.Predicate {
	if len(platforms) == 0 {
		return query.True()
	}
	return query.InFold(field, platforms...)
}

func alertFilter(p ListParams) query.Predicate {
	return query.And(
		anyOf("status", p.Statuses),
		anyOf("severity", p.Severities),
		anyPlatform("platforms", p.Platforms),
		query.Compile(p.Search, models.AlertSearchFields, p.Fields),
	)
}

func postFilter(p ListParams) query.Predicate {
	return query.And(
		anyOf("sentiment", p.Sentiments),
		anyPlatform("platform", p.Platforms),
		query.Compile(p.Search, models.PostSearchFields, p.Fields),
	)
}

func caseStudyFilter(p ListParams) query.Predicate {
	return query.And(
		anyOf("status", p.Statuses),
		query.Compile(p.Search, models.CaseStudySearchFields, p.Fields),
	)
}

// ListAlerts returns a page of the user's alerts, newest first.
func (s *Service) ListAlerts(ctx context.Context, userID uuid.UUID, p ListParams) (*Page[models.Alert], error) {
	pushed, residual := query.Split(alertFilter(p), store.AlertColumns.Native)

	alerts, err := s.store.Alerts.List(ctx, nil, userID, pushed)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	page, limit := s.bounds(p)
	result := Paginate(query.Filter(alerts, residual), page, limit)
	return &result, nil
}

// AlertDetail returns one owned alert with a filtered page of its posts.
func (s *Service) AlertDetail(ctx context.Context, userID, alertID uuid.UUID, p ListParams) (*AlertDetail, error) {
	alert, err := s.store.Alerts.GetOwned(ctx, nil, userID, alertID)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts(ctx, store.PostScope{UserID: userID, AlertID: &alert.ID}, p)
	if err != nil {
		return nil, err
	}
	return &AlertDetail{Alert: alert, Posts: *posts}, nil
}

// ListPosts returns posts linked to any of the user's alerts, or to the one
// alert named by p.AlertID.
func (s *Service) ListPosts(ctx context.Context, userID uuid.UUID, p ListParams) (*Page[models.Post], error) {
	scope := store.PostScope{UserID: userID}
	if p.AlertID != nil {
		if _, err := s.store.Alerts.GetOwned(ctx, nil, userID, *p.AlertID); err != nil {
			return nil, err
		}
		scope.AlertID = p.AlertID
	}
	return s.posts(ctx, scope, p)
}

// PostsByAlert returns the posts linked to one owned alert.
func (s *Service) PostsByAlert(ctx context.Context, userID, alertID uuid.UUID, p ListParams) (*Page[models.Post], error) {
	p.AlertID = &alertID
	return s.ListPosts(ctx, userID, p)
}

// PostsByCaseStudy returns the snapshot posts of one owned case study.
func (s *Service) PostsByCaseStudy(ctx context.Context, userID, caseStudyID uuid.UUID, p ListParams) (*Page[models.Post], error) {
	if _, err := s.store.CaseStudies.GetOwned(ctx, nil, userID, caseStudyID); err != nil {
		return nil, err
	}
	return s.posts(ctx, store.PostScope{UserID: userID, CaseStudyID: &caseStudyID}, p)
}

func (s *Service) posts(ctx context.Context, scope store.PostScope, p ListParams) (*Page[models.Post], error) {
	pushed, residual := query.Split(postFilter(p), store.PostColumns.Native)

	posts, err := s.store.Posts.List(ctx, nil, scope, pushed)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	page, limit := s.bounds(p)
	result := Paginate(query.Filter(posts, residual), page, limit)
	return &result, nil
}

// ListCaseStudies returns a page of the user's case studies, newest first.
func (s *Service) ListCaseStudies(ctx context.Context, userID uuid.UUID, p ListParams) (*Page[models.CaseStudy], error) {
	pushed, residual := query.Split(caseStudyFilter(p), store.CaseStudyColumns.Native)

	caseStudies, err := s.store.CaseStudies.List(ctx, nil, userID, pushed)
	if err != nil {
		return nil, fmt.Errorf("failed to list case studies: %w", err)
	}

	page, limit := s.bounds(p)
	result := Paginate(query.Filter(caseStudies, residual), page, limit)
	return &result, nil
}

// Stats returns the dashboard counts for the user.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*models.Stats, error) {
	total, active, err := s.store.Alerts.CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	mentioned, err := s.store.Links.CountDistinctPostsForUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mentioned posts: %w", err)
	}
	caseStudies, err := s.store.CaseStudies.CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count case studies: %w", err)
	}

	return &models.Stats{
		TotalAlerts:      total,
		ActiveAlerts:     active,
		MentionedPosts:   mentioned,
		TotalCaseStudies: caseStudies,
	}, nil
}
