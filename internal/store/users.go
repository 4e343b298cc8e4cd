package store

import (
	"context"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]models.User, error)
	GetByLogin(ctx context.Context, tx *gorm.DB, login string) (*models.User, error)
	SetNotifications(ctx context.Context, tx *gorm.DB, userID uuid.UUID, enabled bool) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

func (ur *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ur.db
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := ur.conn(tx).WithContext(ctx).Omit("Alerts").Create(user).Error; err != nil {
		if IsDuplicate(err) {
			return apperr.Conflict("username, email or phone already registered")
		}
		return err
	}
	return nil
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := ur.conn(tx).WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]models.User, error) {
	var users []models.User
	if len(userIDs) == 0 {
		return users, nil
	}
	if err := ur.conn(tx).WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByLogin finds a user by username or email.
func (ur *userRepo) GetByLogin(ctx context.Context, tx *gorm.DB, login string) (*models.User, error) {
	var user models.User
	if err := ur.conn(tx).WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (ur *userRepo) SetNotifications(ctx context.Context, tx *gorm.DB, userID uuid.UUID, enabled bool) error {
	res := ur.conn(tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("notifications_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
