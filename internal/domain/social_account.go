package domain

import "time"

// SocialAccountLink binds one provider identity to one user. A user owns at
// most one link per provider.
type SocialAccountLink struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index;uniqueIndex:idx_social_user_provider" json:"user_id"`
	Provider       Provider   `gorm:"size:16;not null;uniqueIndex:idx_social_provider_uid;uniqueIndex:idx_social_user_provider" json:"provider"`
	ProviderID     string     `gorm:"size:255;not null;uniqueIndex:idx_social_provider_uid" json:"provider_id"`
	AccessToken    string     `gorm:"size:4096" json:"-"`
	RefreshToken   string     `gorm:"size:4096" json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (SocialAccountLink) TableName() string {
	return "social_accounts"
}
