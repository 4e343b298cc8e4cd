package store

import (
	"context"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/query"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PostScope narrows a post listing to what one user may see.
type PostScope struct {
	UserID      uuid.UUID
	AlertID     *uuid.UUID
	CaseStudyID *uuid.UUID
}

type PostRepo interface {
	Create(ctx context.Context, tx *gorm.DB, post *models.Post) error
	GetByID(ctx context.Context, tx *gorm.DB, postID uuid.UUID) (*models.Post, error)
	GetVisible(ctx context.Context, tx *gorm.DB, userID, postID uuid.UUID) (*models.Post, error)
	SourceURLExists(ctx context.Context, tx *gorm.DB, sourceURL string) (bool, error)
	List(ctx context.Context, tx *gorm.DB, scope PostScope, filter query.Predicate) ([]models.Post, error)
	ListPublishedSince(ctx context.Context, tx *gorm.DB, since *time.Time) ([]models.Post, error)
	ListByAlertChronological(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) ([]models.Post, error)
	Update(ctx context.Context, tx *gorm.DB, post *models.Post) error
	Delete(ctx context.Context, tx *gorm.DB, postID uuid.UUID) error
}

type postRepo struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewPostRepo(db *gorm.DB) PostRepo {
	return &postRepo{db: db, log: logrus.WithField("repo", "PostRepo")}
}

func (pr *postRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

// Create inserts the post. A second post with the same source URL is a
// conflict; the unique index backs the check under concurrency.
func (pr *postRepo) Create(ctx context.Context, tx *gorm.DB, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if err := pr.conn(tx).WithContext(ctx).Create(post).Error; err != nil {
		if IsDuplicate(err) {
			return apperr.Conflict("a post with source URL %s already exists", post.SourceURL)
		}
		return err
	}
	return nil
}

func (pr *postRepo) GetByID(ctx context.Context, tx *gorm.DB, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := pr.conn(tx).WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}

// GetVisible returns the post only when it is linked to one of the user's
// alerts.
func (pr *postRepo) GetVisible(ctx context.Context, tx *gorm.DB, userID, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	db := pr.conn(tx).WithContext(ctx)
	if err := db.Where("posts.id = ?", postID).
		Where("posts.id IN (?)", ownedPostIDs(db, userID, nil)).
		First(&post).Error; err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}

func (pr *postRepo) SourceURLExists(ctx context.Context, tx *gorm.DB, sourceURL string) (bool, error) {
	var count int64
	if err := pr.conn(tx).WithContext(ctx).
		Model(&models.Post{}).
		Where("source_url = ?", sourceURL).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns every post in scope, most recently published first. The
// result is not paginated.
func (pr *postRepo) List(ctx context.Context, tx *gorm.DB, scope PostScope, filter query.Predicate) ([]models.Post, error) {
	db := pr.conn(tx).WithContext(ctx)
	q, err := ApplyNative(db.Model(&models.Post{}), filter, PostColumns)
	if err != nil {
		return nil, err
	}

	if scope.CaseStudyID != nil {
		snapshot := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.CaseStudyPost{}).
			Select("case_study_posts.post_id").
			Joins("JOIN case_studies ON case_studies.id = case_study_posts.case_study_id").
			Where("case_study_posts.case_study_id = ? AND case_studies.user_id = ?", *scope.CaseStudyID, scope.UserID)
		q = q.Where("posts.id IN (?)", snapshot)
	} else {
		q = q.Where("posts.id IN (?)", ownedPostIDs(db, scope.UserID, scope.AlertID))
	}

	var posts []models.Post
	if err := q.Order("posts.published_at DESC").
		Order("posts.id").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPublishedSince returns scan candidates. A nil since means all posts.
func (pr *postRepo) ListPublishedSince(ctx context.Context, tx *gorm.DB, since *time.Time) ([]models.Post, error) {
	q := pr.conn(tx).WithContext(ctx).Model(&models.Post{})
	if since != nil {
		q = q.Where("published_at >= ?", since.UTC())
	}

	var posts []models.Post
	if err := q.Order("published_at").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (pr *postRepo) ListByAlertChronological(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) ([]models.Post, error) {
	var posts []models.Post
	if err := pr.conn(tx).WithContext(ctx).
		Joins("JOIN alert_posts ON alert_posts.post_id = posts.id").
		Where("alert_posts.alert_id = ?", alertID).
		Order("posts.published_at").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (pr *postRepo) Update(ctx context.Context, tx *gorm.DB, post *models.Post) error {
	if err := pr.conn(tx).WithContext(ctx).
		Model(post).
		Select("title", "content", "source", "sentiment", "platform", "published_at").
		Updates(post).Error; err != nil {
		return err
	}
	return nil
}

// Delete removes the post and its snapshot links. Alert links are removed
// by the caller so it can adjust counters in the same transaction.
func (pr *postRepo) Delete(ctx context.Context, tx *gorm.DB, postID uuid.UUID) error {
	return pr.conn(tx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.CaseStudyPost{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, "id = ?", postID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "post")
		}
		return nil
	})
}

// ownedPostIDs is a subquery selecting the ids of posts linked to the user's
// alerts, optionally to a single alert.
func ownedPostIDs(db *gorm.DB, userID uuid.UUID, alertID *uuid.UUID) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.AlertPost{}).
		Select("alert_posts.post_id").
		Joins("JOIN alerts ON alerts.id = alert_posts.alert_id").
		Where("alerts.user_id = ?", userID)
	if alertID != nil {
		sub = sub.Where("alert_posts.alert_id = ?", *alertID)
	}
	return sub
}
