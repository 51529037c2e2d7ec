package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/folkops/opsboard/internal/models"
)

// UserRepository handles database operations for users.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint64) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Update updates a user in the database.
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateLastLogin updates the last login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(userID uint64) error {
	now := time.Now()
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login":     now,
			"login_attempts": 0,
		}).Error
}

// IncrementLoginAttempts increments the login attempts counter.
func (r *UserRepository) IncrementLoginAttempts(userID uint64) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("login_attempts", gorm.Expr("login_attempts + ?", 1)).
		Error
}

// LockAccount locks a user account until the specified time.
func (r *UserRepository) LockAccount(userID uint64, until time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("locked_until", until).
		Error
}

// UnlockAccount unlocks a user account.
func (r *UserRepository) UnlockAccount(userID uint64) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"locked_until":   nil,
			"login_attempts": 0,
		}).Error
}

// List retrieves users with pagination.
func (r *UserRepository) List(offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *UserRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// GetColumnPermission returns the stored column allow-list for a role on
// one view, or nil when the view's full column set applies.
func (r *UserRepository) GetColumnPermission(role models.Role, view string) (*models.ColumnPermission, error) {
	var perm models.ColumnPermission
	err := r.db.First(&perm, "role = ? AND view = ?", role, view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

// UpsertColumnPermission stores or replaces a role's column allow-list.
func (r *UserRepository) UpsertColumnPermission(perm *models.ColumnPermission) error {
	existing, err := r.GetColumnPermission(perm.Role, perm.View)
	if err != nil {
		return err
	}
	if existing != nil {
		perm.ID = existing.ID
	}
	return r.db.Save(perm).Error
}
