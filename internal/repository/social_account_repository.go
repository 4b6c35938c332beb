package repository

//go:generate mockgen -source=social_account_repository.go -destination=gomock/social_account_repository_mock.go -package=gomock

import (
	"context"
	"time"

	"github.com/vetmatch/identity/internal/domain"

	"gorm.io/gorm"
)

type SocialAccountRepository interface {
	FindByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.SocialAccountLink, error)
	ListByUserID(ctx context.Context, userID uint) ([]domain.SocialAccountLink, error)
	StoreTokens(ctx context.Context, id uint, accessToken, refreshToken string, expiresAt *time.Time) error
}

type GormSocialAccountRepository struct{ db *gorm.DB }

func NewSocialAccountRepository(db *gorm.DB) SocialAccountRepository {
	return &GormSocialAccountRepository{db: db}
}

func (r *GormSocialAccountRepository) FindByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.SocialAccountLink, error) {
	var link domain.SocialAccountLink
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&link).Error
	if err = record(ctx, "social_account", "find_by_provider", translate(err, ErrSocialAccountNotFound)); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *GormSocialAccountRepository) ListByUserID(ctx context.Context, userID uint) ([]domain.SocialAccountLink, error) {
	var links []domain.SocialAccountLink
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&links).Error
	if err = record(ctx, "social_account", "list_by_user", err); err != nil {
		return nil, err
	}
	return links, nil
}

// StoreTokens keeps the latest provider tokens on the link. An empty refresh
// token leaves the stored one in place.
func (r *GormSocialAccountRepository) StoreTokens(ctx context.Context, id uint, accessToken, refreshToken string, expiresAt *time.Time) error {
	updates := map[string]any{
		"access_token":     accessToken,
		"token_expires_at": expiresAt,
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	res := r.db.WithContext(ctx).Model(&domain.SocialAccountLink{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return record(ctx, "social_account", "store_tokens", translate(res.Error, ErrSocialAccountNotFound))
	}
	if res.RowsAffected == 0 {
		return record(ctx, "social_account", "store_tokens", ErrSocialAccountNotFound)
	}
	return record(ctx, "social_account", "store_tokens", nil)
}
