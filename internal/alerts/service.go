// Package alerts manages the lifecycle of users' alert rules.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/azure/brand-mentions-api/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Input is the writable part of an alert. Blank severity and status take
// the defaults Medium and ACTIVE.
type Input struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	Severity    string   `json:"severity" validate:"omitempty,oneof=Low Medium High Critical"`
	Status      string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Keywords    []string `json:"keywords" validate:"required,min=1,dive,required,max=255"`
	Platforms   []string `json:"platforms" validate:"required,min=1,dive,required,max=64"`
}

// Service handles alert CRUD for one owner at a time
type Service struct {
	store *store.Store
	log   *logrus.Entry
}

// NewService creates a new alert service
func NewService(s *store.Store) *Service {
	return &Service{
		store: s,
		log:   logrus.WithField("component", "alerts"),
	}
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Keywords = cleanList(in.Keywords)
	in.Platforms = cleanList(in.Platforms)
	if in.Severity == "" {
		in.Severity = models.SeverityMedium
	}
	if in.Status == "" {
		in.Status = models.AlertStatusActive
	}
}

// cleanList trims entries and drops blanks and case-insensitive repeats,
// keeping first-seen order.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// Create stores a new alert for the user. Matching is not run; callers scan
// explicitly.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*models.Alert, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	alert := &models.Alert{
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		Status:      in.Status,
		Keywords:    in.Keywords,
		Platforms:   in.Platforms,
		UserID:      userID,
	}
	if err := s.store.Alerts.Create(ctx, nil, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"user_id":  userID,
	}).Info("Created alert")
	return alert, nil
}

// Get returns one of the user's alerts.
func (s *Service) Get(ctx context.Context, userID, alertID uuid.UUID) (*models.Alert, error) {
	return s.store.Alerts.GetOwned(ctx, nil, userID, alertID)
}

// Update replaces the writable fields of one of the user's alerts. Existing
// links and the post counter are kept.
func (s *Service) Update(ctx context.Context, userID, alertID uuid.UUID, in Input) (*models.Alert, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	alert, err := s.store.Alerts.GetOwned(ctx, nil, userID, alertID)
	if err != nil {
		return nil, err
	}

	alert.Title = in.Title
	alert.Description = in.Description
	alert.Severity = in.Severity
	alert.Status = in.Status
	alert.Keywords = in.Keywords
	alert.Platforms = in.Platforms

	if err := s.store.Alerts.Update(ctx, nil, alert); err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	return alert, nil
}

// Delete removes one of the user's alerts with its links. A case study
// built from it survives without its alert.
func (s *Service) Delete(ctx context.Context, userID, alertID uuid.UUID) error {
	alert, err := s.store.Alerts.GetOwned(ctx, nil, userID, alertID)
	if err != nil {
		return err
	}
	if err := s.store.Alerts.Delete(ctx, nil, alert.ID); err != nil {
		return err
	}

	s.log.WithField("alert_id", alert.ID).Info("Deleted alert")
	return nil
}
