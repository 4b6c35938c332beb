package repository

//go:generate mockgen -source=user_repository.go -destination=gomock/user_repository_mock.go -package=gomock

import (
	"context"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/domain"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindActiveByID(ctx context.Context, id uint) (*domain.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	FindActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	FindActiveByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindWithdrawnByPhone(ctx context.Context, phone string) (*domain.User, error)
	MarkWithdrawn(ctx context.Context, id uint, at time.Time, reason *string) error
	Restore(ctx context.Context, id uint) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func activeUsers(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ? AND deleted_at IS NULL", true)
}

func (r *GormUserRepository) first(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) (*domain.User, error) {
	var u domain.User
	err := scope(r.db.WithContext(ctx)).First(&u).Error
	if err = record(ctx, "user", op, translate(err, ErrUserNotFound)); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "find_by_id", func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	})
}

func (r *GormUserRepository) FindActiveByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "find_active_by_id", func(db *gorm.DB) *gorm.DB {
		return activeUsers(db).Where("id = ?", id)
	})
}

func (r *GormUserRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "find_active_by_email", func(db *gorm.DB) *gorm.DB {
		return activeUsers(db).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	})
}

func (r *GormUserRepository) FindActiveByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "find_active_by_username", func(db *gorm.DB) *gorm.DB {
		return activeUsers(db).Where("username = ?", strings.TrimSpace(username))
	})
}

func (r *GormUserRepository) FindActiveByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.first(ctx, "find_active_by_phone", func(db *gorm.DB) *gorm.DB {
		return activeUsers(db).Where("phone = ?", phone)
	})
}

// FindWithdrawnByPhone returns the most recently withdrawn account for phone.
func (r *GormUserRepository) FindWithdrawnByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.first(ctx, "find_withdrawn_by_phone", func(db *gorm.DB) *gorm.DB {
		return db.Where("phone = ? AND is_active = ? AND deleted_at IS NOT NULL", phone, false).
			Order("deleted_at desc")
	})
}

func (r *GormUserRepository) MarkWithdrawn(ctx context.Context, id uint, at time.Time, reason *string) error {
	res := activeUsers(r.db.WithContext(ctx).Model(&domain.User{})).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":       false,
			"deleted_at":      at,
			"withdraw_reason": reason,
		})
	if res.Error != nil {
		return record(ctx, "user", "mark_withdrawn", translate(res.Error, ErrUserNotFound))
	}
	if res.RowsAffected == 0 {
		return record(ctx, "user", "mark_withdrawn", ErrUserNotFound)
	}
	return record(ctx, "user", "mark_withdrawn", nil)
}

// Restore reactivates a withdrawn account. A restore that collides with an
// active account holding the same email, phone or username fails with
// ErrDuplicate.
func (r *GormUserRepository) Restore(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND is_active = ? AND deleted_at IS NOT NULL", id, false).
		Updates(map[string]any{
			"is_active":       true,
			"deleted_at":      nil,
			"withdraw_reason": nil,
		})
	if res.Error != nil {
		return record(ctx, "user", "restore", translate(res.Error, ErrUserNotFound))
	}
	if res.RowsAffected == 0 {
		return record(ctx, "user", "restore", ErrUserNotFound)
	}
	return record(ctx, "user", "restore", nil)
}

func (r *GormUserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("last_login_at", at).Error
	return record(ctx, "user", "touch_last_login", translate(err, ErrUserNotFound))
}

func (r *GormUserRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	res := activeUsers(r.db.WithContext(ctx).Model(&domain.User{})).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return record(ctx, "user", "update_password_hash", translate(res.Error, ErrUserNotFound))
	}
	if res.RowsAffected == 0 {
		return record(ctx, "user", "update_password_hash", ErrUserNotFound)
	}
	return record(ctx, "user", "update_password_hash", nil)
}
