package repository

//go:generate mockgen -source=profile_repository.go -destination=gomock/profile_repository_mock.go -package=gomock

import (
	"context"

	"github.com/vetmatch/identity/internal/domain"

	"gorm.io/gorm"
)

type ProfileRepository interface {
	FindVeterinarianByUserID(ctx context.Context, userID uint) (*domain.VeterinarianProfile, error)
	FindHospitalByUserID(ctx context.Context, userID uint) (*domain.HospitalProfile, error)
}

type GormProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &GormProfileRepository{db: db} }

func (r *GormProfileRepository) FindVeterinarianByUserID(ctx context.Context, userID uint) (*domain.VeterinarianProfile, error) {
	var p domain.VeterinarianProfile
	err := r.db.WithContext(ctx).Where("user_id = ? AND deleted_at IS NULL", userID).First(&p).Error
	if err = record(ctx, "profile", "find_veterinarian", translate(err, ErrProfileNotFound)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProfileRepository) FindHospitalByUserID(ctx context.Context, userID uint) (*domain.HospitalProfile, error) {
	var p domain.HospitalProfile
	err := r.db.WithContext(ctx).Where("user_id = ? AND deleted_at IS NULL", userID).First(&p).Error
	if err = record(ctx, "profile", "find_hospital", translate(err, ErrProfileNotFound)); err != nil {
		return nil, err
	}
	return &p, nil
}
