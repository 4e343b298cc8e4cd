package store

import (
	"context"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/query"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaseStudyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cs *models.CaseStudy) error
	GetOwned(ctx context.Context, tx *gorm.DB, userID, caseStudyID uuid.UUID) (*models.CaseStudy, error)
	ExistsForAlert(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) (bool, error)
	List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter query.Predicate) ([]models.CaseStudy, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, caseStudyID uuid.UUID, status string) error
	Delete(ctx context.Context, tx *gorm.DB, caseStudyID uuid.UUID) error
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type caseStudyRepo struct {
	db *gorm.DB
}

func NewCaseStudyRepo(db *gorm.DB) CaseStudyRepo {
	return &caseStudyRepo{db: db}
}

func (r *caseStudyRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the case study. The unique index on alert_id turns a
// second case study for the same alert into a conflict.
func (r *caseStudyRepo) Create(ctx context.Context, tx *gorm.DB, cs *models.CaseStudy) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	if err := r.conn(tx).WithContext(ctx).Omit("User", "Alert").Create(cs).Error; err != nil {
		if IsDuplicate(err) {
			return apperr.Conflict("a case study already exists for this alert")
		}
		return err
	}
	return nil
}

func (r *caseStudyRepo) GetOwned(ctx context.Context, tx *gorm.DB, userID, caseStudyID uuid.UUID) (*models.CaseStudy, error) {
	var cs models.CaseStudy
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", caseStudyID, userID).
		First(&cs).Error; err != nil {
		return nil, notFound(err, "case study")
	}
	return &cs, nil
}

func (r *caseStudyRepo) ExistsForAlert(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) (bool, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&models.CaseStudy{}).
		Where("alert_id = ?", alertID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *caseStudyRepo) List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter query.Predicate) ([]models.CaseStudy, error) {
	q, err := ApplyNative(r.conn(tx).WithContext(ctx).Model(&models.CaseStudy{}), filter, CaseStudyColumns)
	if err != nil {
		return nil, err
	}

	var studies []models.CaseStudy
	if err := q.Where("case_studies.user_id = ?", userID).
		Order("case_studies.created_at DESC").
		Order("case_studies.id").
		Find(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

func (r *caseStudyRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, caseStudyID uuid.UUID, status string) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.CaseStudy{}).
		Where("id = ?", caseStudyID).
		Update("status", status).Error
}

func (r *caseStudyRepo) Delete(ctx context.Context, tx *gorm.DB, caseStudyID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_study_id = ?", caseStudyID).Delete(&models.CaseStudyPost{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.CaseStudy{}, "id = ?", caseStudyID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "case study")
		}
		return nil
	})
}

func (r *caseStudyRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&models.CaseStudy{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
