package store

import (
	"context"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// linkBatchSize bounds the rows per INSERT when linking a large scan.
const linkBatchSize = 500

// AssociationRepo manages the post join tables explicitly.
type AssociationRepo interface {
	Link(ctx context.Context, tx *gorm.DB, alertID uuid.UUID, postIDs []uuid.UUID) ([]uuid.UUID, error)
	Count(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) (int64, error)
	AlertIDsForPost(ctx context.Context, tx *gorm.DB, postID uuid.UUID) ([]uuid.UUID, error)
	UnlinkPost(ctx context.Context, tx *gorm.DB, postID uuid.UUID) error
	Snapshot(ctx context.Context, tx *gorm.DB, caseStudyID uuid.UUID, postIDs []uuid.UUID) error
	CountDistinctPostsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type associationRepo struct {
	db *gorm.DB
}

func NewAssociationRepo(db *gorm.DB) AssociationRepo {
	return &associationRepo{db: db}
}

func (r *associationRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Link adds alert/post pairs, skipping pairs that already exist, and returns
// the ids of the posts that were newly linked.
func (r *associationRepo) Link(ctx context.Context, tx *gorm.DB, alertID uuid.UUID, postIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	db := r.conn(tx).WithContext(ctx)

	linked := make(map[uuid.UUID]bool, len(postIDs))
	for start := 0; start < len(postIDs); start += linkBatchSize {
		end := min(start+linkBatchSize, len(postIDs))
		var existing []uuid.UUID
		if err := db.Model(&models.AlertPost{}).
			Where("alert_id = ? AND post_id IN ?", alertID, postIDs[start:end]).
			Pluck("post_id", &existing).Error; err != nil {
			return nil, err
		}
		for _, id := range existing {
			linked[id] = true
		}
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	var rows []models.AlertPost
	var fresh []uuid.UUID
	for _, postID := range postIDs {
		if linked[postID] {
			continue
		}
		linked[postID] = true
		rows = append(rows, models.AlertPost{AlertID: alertID, PostID: postID, CreatedAt: now})
		fresh = append(fresh, postID)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// ON CONFLICT covers pairs a concurrent scan inserted since the read above.
	res := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, linkBatchSize)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != int64(len(rows)) {
		return r.confirmLinked(ctx, db, alertID, fresh, now)
	}
	return fresh, nil
}

// confirmLinked narrows candidates to the links written by this call.
func (r *associationRepo) confirmLinked(ctx context.Context, db *gorm.DB, alertID uuid.UUID, candidates []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	var ours []uuid.UUID
	if err := db.WithContext(ctx).Model(&models.AlertPost{}).
		Where("alert_id = ? AND post_id IN ? AND created_at = ?", alertID, candidates, at).
		Pluck("post_id", &ours).Error; err != nil {
		return nil, err
	}
	return ours, nil
}

func (r *associationRepo) Count(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&models.AlertPost{}).
		Where("alert_id = ?", alertID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *associationRepo) AlertIDsForPost(ctx context.Context, tx *gorm.DB, postID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.conn(tx).WithContext(ctx).
		Model(&models.AlertPost{}).
		Where("post_id = ?", postID).
		Pluck("alert_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *associationRepo) UnlinkPost(ctx context.Context, tx *gorm.DB, postID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&models.AlertPost{}).Error
}

// Snapshot copies posts into a case study. Existing pairs are left alone.
func (r *associationRepo) Snapshot(ctx context.Context, tx *gorm.DB, caseStudyID uuid.UUID, postIDs []uuid.UUID) error {
	if len(postIDs) == 0 {
		return nil
	}
	rows := make([]models.CaseStudyPost, 0, len(postIDs))
	for _, postID := range postIDs {
		rows = append(rows, models.CaseStudyPost{CaseStudyID: caseStudyID, PostID: postID})
	}
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, linkBatchSize).Error
}

func (r *associationRepo) CountDistinctPostsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&models.AlertPost{}).
		Joins("JOIN alerts ON alerts.id = alert_posts.alert_id").
		Where("alerts.user_id = ?", userID).
		Distinct("alert_posts.post_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
