// Package casestudy freezes an alert's matched posts into a case study.
package casestudy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/storage"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/azure/brand-mentions-api/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DateLayout formats the ends of a case study's date range.
const DateLayout = "Jan 2, 2006"

// CreateInput holds the caller-supplied fields of a new case study. Nil or
// blank fields fall back to the alert's values.
type CreateInput struct {
	AlertID uuid.UUID `json:"alert_id" validate:"required"`
	Title   *string   `json:"title,omitempty" validate:"omitempty,max=255"`
	Summary *string   `json:"summary,omitempty"`
}

// Snapshot is the archived form of a case study
type Snapshot struct {
	CaseStudy  models.CaseStudy `json:"case_study"`
	Alert      models.Alert     `json:"alert"`
	Posts      []models.Post    `json:"posts"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// Service creates and manages case studies
type Service struct {
	store   *store.Store
	archive storage.Archive
	log     *logrus.Entry
}

// NewService creates a case study service. archive may be nil.
func NewService(s *store.Store, archive storage.Archive) *Service {
	return &Service{
		store:   s,
		archive: archive,
		log:     logrus.WithField("component", "casestudy"),
	}
}

// FormatDateRange spans the earliest and latest publication dates of posts.
// One distinct date is printed alone; no posts yields "N/A".
func FormatDateRange(posts []models.Post) string {
	if len(posts) == 0 {
		return models.DateRangeNotApplicable
	}

	first, last := posts[0].PublishedAt, posts[0].PublishedAt
	for _, p := range posts[1:] {
		if p.PublishedAt.Before(first) {
			first = p.PublishedAt
		}
		if p.PublishedAt.After(last) {
			last = p.PublishedAt
		}
	}

	start := first.UTC().Format(DateLayout)
	end := last.UTC().Format(DateLayout)
	if start == end {
		return start
	}
	return start + " – " + end
}

// Create snapshots the alert's current matches into a new, unresolved case
// study. An alert can back at most one case study.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.CaseStudy, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		cs    *models.CaseStudy
		alert *models.Alert
		posts []models.Post
	)

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		alert, err = s.store.Alerts.GetOwned(ctx, tx, userID, in.AlertID)
		if err != nil {
			return err
		}

		exists, err := s.store.CaseStudies.ExistsForAlert(ctx, tx, alert.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing case study: %w", err)
		}
		if exists {
			return apperr.Conflict("a case study already exists for this alert")
		}

		posts, err = s.store.Posts.ListByAlertChronological(ctx, tx, alert.ID)
		if err != nil {
			return fmt.Errorf("failed to load alert posts: %w", err)
		}

		cs = &models.CaseStudy{
			Title:     alert.Title,
			Summary:   alert.Description,
			PostCount: alert.PostCount,
			DateRange: FormatDateRange(posts),
			Status:    models.CaseStudyUnresolved,
			UserID:    userID,
			AlertID:   &alert.ID,
		}
		if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
			cs.Title = strings.TrimSpace(*in.Title)
		}
		if in.Summary != nil {
			cs.Summary = *in.Summary
		}

		if err := s.store.CaseStudies.Create(ctx, tx, cs); err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(posts))
		for _, p := range posts {
			ids = append(ids, p.ID)
		}
		if err := s.store.Links.Snapshot(ctx, tx, cs.ID, ids); err != nil {
			return fmt.Errorf("failed to snapshot posts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"case_study_id": cs.ID,
		"alert_id":      alert.ID,
		"posts":         len(posts),
	}).Info("Created case study")

	s.archiveSnapshot(ctx, cs, alert, posts)
	return cs, nil
}

// Get returns one of the user's case studies.
func (s *Service) Get(ctx context.Context, userID, caseStudyID uuid.UUID) (*models.CaseStudy, error) {
	return s.store.CaseStudies.GetOwned(ctx, nil, userID, caseStudyID)
}

// SetStatus toggles a case study between Unresolved and Resolved.
func (s *Service) SetStatus(ctx context.Context, userID, caseStudyID uuid.UUID, status string) (*models.CaseStudy, error) {
	if status != models.CaseStudyUnresolved && status != models.CaseStudyResolved {
		return nil, apperr.Validation("status must be %s or %s", models.CaseStudyUnresolved, models.CaseStudyResolved)
	}

	cs, err := s.store.CaseStudies.GetOwned(ctx, nil, userID, caseStudyID)
	if err != nil {
		return nil, err
	}
	if cs.Status == status {
		return cs, nil
	}

	if err := s.store.CaseStudies.UpdateStatus(ctx, nil, cs.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update case study status: %w", err)
	}
	cs.Status = status
	return cs, nil
}

// Delete removes one of the user's case studies and its archived snapshot.
func (s *Service) Delete(ctx context.Context, userID, caseStudyID uuid.UUID) error {
	cs, err := s.store.CaseStudies.GetOwned(ctx, nil, userID, caseStudyID)
	if err != nil {
		return err
	}
	if err := s.store.CaseStudies.Delete(ctx, nil, cs.ID); err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.Delete(ctx, archiveName(cs.ID)); err != nil {
			s.log.WithError(err).WithField("case_study_id", cs.ID).Warn("Failed to delete archived snapshot")
		}
	}
	return nil
}

// Archived returns the JSON snapshot stored when the case study was created.
func (s *Service) Archived(ctx context.Context, userID, caseStudyID uuid.UUID) ([]byte, error) {
	cs, err := s.store.CaseStudies.GetOwned(ctx, nil, userID, caseStudyID)
	if err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, apperr.NotFound("archive")
	}
	return s.archive.Get(ctx, archiveName(cs.ID))
}

func (s *Service) archiveSnapshot(ctx context.Context, cs *models.CaseStudy, alert *models.Alert, posts []models.Post) {
	if s.archive == nil {
		return
	}

	log := s.log.WithField("case_study_id", cs.ID)
	data, err := json.Marshal(Snapshot{
		CaseStudy:  *cs,
		Alert:      *alert,
		Posts:      posts,
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		log.WithError(err).Error("Failed to encode case study snapshot")
		return
	}
	if err := s.archive.Put(ctx, archiveName(cs.ID), data); err != nil {
		log.WithError(err).Warn("Failed to archive case study snapshot")
	}
}

func archiveName(id uuid.UUID) string {
	return "casestudies/" + id.String() + ".json"
}
