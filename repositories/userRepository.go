package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"SmartHealth/cache"
	"SmartHealth/models"
)

const (
	UserCacheExpiry = 7 * 24 * time.Hour
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUniqueID(ctx context.Context, uniqueID string, role models.Role) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UniqueIDExists(ctx context.Context, uniqueID string) (bool, error)
	ListUsersByRole(ctx context.Context, role models.Role, excludeID uint) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateProfilePhoto(ctx context.Context, userID uint, path string) error
	UpdateUserPassword(ctx context.Context, userID uint, hashedPassword string) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewUserRepository(db *gorm.DB, cache *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: cache}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "failed to create user")
}

func (r *userRepository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getUserCacheKey(userID)
	var user models.User
	found, err := r.cache.GetJSON(ctx, cacheKey, &user)
	if err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("failed to get user from cache")
	}
	if found {
		return &user, nil
	}

	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user")
	}

	if err := r.cache.SetJSON(ctx, cacheKey, user, UserCacheExpiry); err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("failed to set user in cache")
	}
	return &user, nil
}

// GetUserByUsername bypasses the cache because the password hash is never cached.
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user by username")
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user by email")
	}
	return &user, nil
}

func (r *userRepository) GetUserByUniqueID(ctx context.Context, uniqueID string, role models.Role) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("unique_id = ? AND role = ?", uniqueID, role).First(&user).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user by unique id")
	}
	return &user, nil
}

func (r *userRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value).Count(&count).Error
	if err != nil {
		return false, errors.Wrapf(err, "failed to check %s existence", column)
	}
	return count > 0, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

func (r *userRepository) UniqueIDExists(ctx context.Context, uniqueID string) (bool, error) {
	return r.exists(ctx, "unique_id", uniqueID)
}

func (r *userRepository) ListUsersByRole(ctx context.Context, role models.Role, excludeID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND id <> ?", role, excludeID).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users by role")
	}
	return users, nil
}

// UpdateUserProfile saves the editable profile columns. Role and unique_id are never written.
func (r *userRepository) UpdateUserProfile(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Select("first_name", "last_name", "email", "phone", "dob", "location").
		Updates(user).Error
	if err != nil {
		return translate(err, "failed to update user profile")
	}
	return r.invalidate(ctx, user.ID)
}

func (r *userRepository) UpdateProfilePhoto(ctx context.Context, userID uint, path string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("profile_photo", path).Error
	if err != nil {
		return errors.Wrap(err, "failed to update profile photo")
	}
	return r.invalidate(ctx, userID)
}

func (r *userRepository) UpdateUserPassword(ctx context.Context, userID uint, hashedPassword string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", hashedPassword).Error
	return errors.Wrap(err, "failed to update password")
}

func (r *userRepository) invalidate(ctx context.Context, userID uint) error {
	if err := r.cache.Delete(ctx, r.getUserCacheKey(userID)); err != nil {
		return errors.Wrap(err, "failed to delete user cache")
	}
	return nil
}

func (r *userRepository) getUserCacheKey(userID uint) string {
	return fmt.Sprintf("user_cache:%d", userID)
}
