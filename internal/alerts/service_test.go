package alerts

import (
	"context"
	"testing"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s)
	user := storetest.SeedUser(t, s, "alice", true)

	alert, err := svc.Create(context.Background(), user.ID, Input{
		Title:     "  Acme  ",
		Keywords:  []string{"acme", " ACME ", "", "widget"},
		Platforms: []string{"Reddit"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme", alert.Title)
	assert.Equal(t, []string{"acme", "widget"}, []string(alert.Keywords))
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, int64(0), alert.PostCount)

	stored, err := svc.Get(context.Background(), user.ID, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reddit"}, []string(stored.Platforms))
}

func TestCreate_Validation(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s)
	user := storetest.SeedUser(t, s, "alice", true)

	tests := []struct {
		name  string
		input Input
	}{
		{name: "missing title", input: Input{Keywords: []string{"a"}, Platforms: []string{"X"}}},
		{name: "blank keywords", input: Input{Title: "t", Keywords: []string{" "}, Platforms: []string{"X"}}},
		{name: "no platforms", input: Input{Title: "t", Keywords: []string{"a"}}},
		{name: "bad severity", input: Input{Title: "t", Severity: "Urgent", Keywords: []string{"a"}, Platforms: []string{"X"}}},
		{name: "bad status", input: Input{Title: "t", Status: "PAUSED", Keywords: []string{"a"}, Platforms: []string{"X"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), user.ID, tt.input)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	total, _, err := s.Alerts.CountByUser(context.Background(), nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestUpdateKeepsCounter(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s)
	ctx := context.Background()
	alice := storetest.SeedUser(t, s, "alice", true)
	bob := storetest.SeedUser(t, s, "bob", true)
	alert := storetest.SeedAlert(t, s, alice.ID, "fires", []string{"fire"}, []string{"News"})
	post := storetest.SeedPost(t, s, "fire", "", "News", storetest.Date(2024, 1, 1))
	storetest.Link(t, s, alert.ID, post)

	in := Input{
		Title:     "fires and floods",
		Severity:  models.SeverityCritical,
		Status:    models.AlertStatusInactive,
		Keywords:  []string{"fire", "flood"},
		Platforms: []string{"News"},
	}
	updated, err := svc.Update(ctx, alice.ID, alert.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "fires and floods", updated.Title)

	stored, err := s.Alerts.GetByID(ctx, nil, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, stored.Severity)
	assert.Equal(t, models.AlertStatusInactive, stored.Status)
	assert.Equal(t, []string{"fire", "flood"}, []string(stored.Keywords))
	assert.Equal(t, int64(1), stored.PostCount)

	_, err = svc.Update(ctx, bob.ID, alert.ID, in)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDelete(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s)
	ctx := context.Background()
	alice := storetest.SeedUser(t, s, "alice", true)
	bob := storetest.SeedUser(t, s, "bob", true)
	alert := storetest.SeedAlert(t, s, alice.ID, "fires", []string{"fire"}, []string{"News"})

	err := svc.Delete(ctx, bob.ID, alert.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.Delete(ctx, alice.ID, alert.ID))

	err = svc.Delete(ctx, alice.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
