package casestudy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockArchive is a mock implementation of storage.Archive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Put(ctx context.Context, name string, data []byte) error {
	args := m.Called(ctx, name, data)
	return args.Error(0)
}

func (m *MockArchive) Get(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArchive) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func TestFormatDateRange(t *testing.T) {
	at := func(y int, m time.Month, d, h int) models.Post {
		return models.Post{PublishedAt: time.Date(y, m, d, h, 0, 0, 0, time.UTC)}
	}

	tests := []struct {
		name     string
		posts    []models.Post
		expected string
	}{
		{name: "no posts", posts: nil, expected: "N/A"},
		{name: "single post", posts: []models.Post{at(2024, 3, 4, 9)}, expected: "Mar 4, 2024"},
		{name: "same day", posts: []models.Post{at(2024, 3, 4, 9), at(2024, 3, 4, 18)}, expected: "Mar 4, 2024"},
		{name: "unordered span", posts: []models.Post{at(2024, 5, 1, 0), at(2024, 1, 2, 0), at(2024, 3, 3, 0)}, expected: "Jan 2, 2024 – May 1, 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDateRange(tt.posts))
		})
	}
}

func TestCreate_SnapshotsAlert(t *testing.T) {
	s := storetest.Store(t)
	archive := &MockArchive{}
	svc := NewService(s, archive)
	ctx := context.Background()

	user := storetest.SeedUser(t, s, "alice", true)
	alert := storetest.SeedAlert(t, s, user.ID, "fires", []string{"fire"}, []string{"News"},
		storetest.WithDescription("plant fires"))
	p1 := storetest.SeedPost(t, s, "fire one", "", "News", storetest.Date(2024, 3, 4))
	p2 := storetest.SeedPost(t, s, "fire two", "", "News", storetest.Date(2024, 1, 2))
	storetest.Link(t, s, alert.ID, p1, p2)

	archive.On("Put", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "casestudies/") && strings.HasSuffix(name, ".json")
	}), mock.MatchedBy(func(data []byte) bool {
		var snap Snapshot
		return json.Unmarshal(data, &snap) == nil && len(snap.Posts) == 2
	})).Return(nil).Once()

	cs, err := svc.Create(ctx, user.ID, CreateInput{AlertID: alert.ID, Title: strPtr("  ")})
	require.NoError(t, err)
	archive.AssertExpectations(t)

	assert.Equal(t, "fires", cs.Title)
	assert.Equal(t, "plant fires", cs.Summary)
	assert.Equal(t, int64(2), cs.PostCount)
	assert.Equal(t, "Jan 2, 2024 – Mar 4, 2024", cs.DateRange)
	assert.Equal(t, models.CaseStudyUnresolved, cs.Status)

	// Later matches do not reach the snapshot.
	p3 := storetest.SeedPost(t, s, "fire three", "", "News", storetest.Date(2024, 6, 1))
	storetest.Link(t, s, alert.ID, p3)

	var snapshotted int64
	require.NoError(t, s.DB.Model(&models.CaseStudyPost{}).Where("case_study_id = ?", cs.ID).Count(&snapshotted).Error)
	assert.Equal(t, int64(2), snapshotted)
}

func TestCreate_SecondCaseStudyConflicts(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s, nil)
	ctx := context.Background()
	user := storetest.SeedUser(t, s, "alice", true)
	alert := storetest.SeedAlert(t, s, user.ID, "fires", []string{"fire"}, []string{"News"})

	original, err := svc.Create(ctx, user.ID, CreateInput{AlertID: alert.ID, Summary: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, models.DateRangeNotApplicable, original.DateRange)
	assert.Equal(t, int64(0), original.PostCount)

	post := storetest.SeedPost(t, s, "fire", "", "News", time.Now())
	storetest.Link(t, s, alert.ID, post)

	_, err = svc.Create(ctx, user.ID, CreateInput{AlertID: alert.ID, Title: strPtr("again")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	kept, err := svc.Get(ctx, user.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), kept.PostCount)
	assert.Equal(t, models.DateRangeNotApplicable, kept.DateRange)
}

func TestCreate_ForeignAlert(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s, nil)
	alice := storetest.SeedUser(t, s, "alice", true)
	bob := storetest.SeedUser(t, s, "bob", true)
	alert := storetest.SeedAlert(t, s, bob.ID, "bob", []string{"x"}, []string{"News"})

	_, err := svc.Create(context.Background(), alice.ID, CreateInput{AlertID: alert.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreate_ArchiveFailureIsNotSurfaced(t *testing.T) {
	s := storetest.Store(t)
	archive := &MockArchive{}
	svc := NewService(s, archive)
	user := storetest.SeedUser(t, s, "alice", true)
	alert := storetest.SeedAlert(t, s, user.ID, "fires", []string{"fire"}, []string{"News"})

	archive.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("403")).Once()

	cs, err := svc.Create(context.Background(), user.ID, CreateInput{AlertID: alert.ID})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, cs.ID)
	archive.AssertExpectations(t)
}

func TestSetStatus(t *testing.T) {
	s := storetest.Store(t)
	svc := NewService(s, nil)
	ctx := context.Background()
	alice := storetest.SeedUser(t, s, "alice", true)
	bob := storetest.SeedUser(t, s, "bob", true)
	alert := storetest.SeedAlert(t, s, alice.ID, "fires", []string{"fire"}, []string{"News"})
	cs, err := svc.Create(ctx, alice.ID, CreateInput{AlertID: alert.ID})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, alice.ID, cs.ID, models.CaseStudyResolved)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStudyResolved, updated.Status)

	stored, err := svc.Get(ctx, alice.ID, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStudyResolved, stored.Status)

	_, err = svc.SetStatus(ctx, alice.ID, cs.ID, "Closed")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetStatus(ctx, bob.ID, cs.ID, models.CaseStudyUnresolved)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteAndArchived(t *testing.T) {
	s := storetest.Store(t)
	archive := &MockArchive{}
	svc := NewService(s, archive)
	ctx := context.Background()
	user := storetest.SeedUser(t, s, "alice", true)
	alert := storetest.SeedAlert(t, s, user.ID, "fires", []string{"fire"}, []string{"News"})

	archive.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	cs, err := svc.Create(ctx, user.ID, CreateInput{AlertID: alert.ID})
	require.NoError(t, err)

	name := "casestudies/" + cs.ID.String() + ".json"
	archive.On("Get", mock.Anything, name).Return([]byte(`{"posts":[]}`), nil).Once()
	data, err := svc.Archived(ctx, user.ID, cs.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"posts":[]}`, string(data))

	archive.On("Delete", mock.Anything, name).Return(errors.New("timeout")).Once()
	require.NoError(t, svc.Delete(ctx, user.ID, cs.ID))
	archive.AssertExpectations(t)

	_, err = svc.Get(ctx, user.ID, cs.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// The alert is free for a new case study once the old one is gone.
	archive.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	_, err = svc.Create(ctx, user.ID, CreateInput{AlertID: alert.ID})
	assert.NoError(t, err)
}
