package store

import (
	"context"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/query"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, alert *models.Alert) error
	GetOwned(ctx context.Context, tx *gorm.DB, userID, alertID uuid.UUID) (*models.Alert, error)
	GetByID(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) (*models.Alert, error)
	List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter query.Predicate) ([]models.Alert, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]models.Alert, error)
	ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Alert, error)
	Update(ctx context.Context, tx *gorm.DB, alert *models.Alert) error
	Delete(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) error
	AddPostCount(ctx context.Context, tx *gorm.DB, alertID uuid.UUID, delta int64) error
	RecountAll(ctx context.Context, tx *gorm.DB) (int64, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (total int64, active int64, err error)
}

type alertRepo struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewAlertRepo(db *gorm.DB) AlertRepo {
	return &alertRepo{db: db, log: logrus.WithField("repo", "AlertRepo")}
}

func (ar *alertRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *alertRepo) Create(ctx context.Context, tx *gorm.DB, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	return ar.conn(tx).WithContext(ctx).Create(alert).Error
}

func (ar *alertRepo) GetOwned(ctx context.Context, tx *gorm.DB, userID, alertID uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := ar.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		First(&alert).Error; err != nil {
		return nil, notFound(err, "alert")
	}
	return &alert, nil
}

func (ar *alertRepo) GetByID(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := ar.conn(tx).WithContext(ctx).First(&alert, "id = ?", alertID).Error; err != nil {
		return nil, notFound(err, "alert")
	}
	return &alert, nil
}

// List returns the user's alerts, newest first, narrowed by a predicate the
// database can evaluate.
func (ar *alertRepo) List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filter query.Predicate) ([]models.Alert, error) {
	q, err := ApplyNative(ar.conn(tx).WithContext(ctx).Model(&models.Alert{}), filter, AlertColumns)
	if err != nil {
		return nil, err
	}

	var alerts []models.Alert
	if err := q.Where("alerts.user_id = ?", userID).
		Order("alerts.created_at DESC").
		Order("alerts.id").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (ar *alertRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := ar.conn(tx).WithContext(ctx).
		Where("status = ?", models.AlertStatusActive).
		Order("created_at").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (ar *alertRepo) ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := ar.conn(tx).WithContext(ctx).
		Where("status = ? AND user_id = ?", models.AlertStatusActive, userID).
		Order("created_at").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// Update writes the user-editable columns. post_count is never written here.
func (ar *alertRepo) Update(ctx context.Context, tx *gorm.DB, alert *models.Alert) error {
	return ar.conn(tx).WithContext(ctx).
		Model(alert).
		Select("title", "description", "severity", "status", "keywords", "platforms").
		Updates(alert).Error
}

// Delete removes the alert, its post links, and detaches its case study.
func (ar *alertRepo) Delete(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) error {
	return ar.conn(tx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("alert_id = ?", alertID).Delete(&models.AlertPost{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CaseStudy{}).
			Where("alert_id = ?", alertID).
			Update("alert_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Alert{}, "id = ?", alertID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "alert")
		}
		return nil
	})
}

// AddPostCount applies delta as a single UPDATE so concurrent writers never
// lose increments.
func (ar *alertRepo) AddPostCount(ctx context.Context, tx *gorm.DB, alertID uuid.UUID, delta int64) error {
	if delta == 0 {
		return nil
	}
	return ar.conn(tx).WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", alertID).
		UpdateColumn("post_count", gorm.Expr("post_count + ?", delta)).Error
}

// RecountAll resets every counter from the join table and returns the
// number of alerts whose counter was out of date.
func (ar *alertRepo) RecountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	const recount = `UPDATE alerts SET post_count = (
		SELECT COUNT(*) FROM alert_posts WHERE alert_posts.alert_id = alerts.id
	) WHERE post_count <> (
		SELECT COUNT(*) FROM alert_posts WHERE alert_posts.alert_id = alerts.id
	)`
	res := ar.conn(tx).WithContext(ctx).Exec(recount)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		ar.log.Warnf("Recount corrected %d alert counters", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

func (ar *alertRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, int64, error) {
	var total, active int64
	db := ar.conn(tx).WithContext(ctx)
	if err := db.Model(&models.Alert{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&models.Alert{}).
		Where("user_id = ? AND status = ?", userID, models.AlertStatusActive).
		Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return total, active, nil
}
