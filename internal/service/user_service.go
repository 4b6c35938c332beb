package service

import (
	"context"
	"errors"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/repository"
)

// UserView is the signed-in user as the rest of the platform sees it.
type UserView struct {
	User            *domain.User                `json:"user"`
	ProfileName     string                      `json:"profile_name"`
	EffectiveRole   domain.Role                 `json:"role"`
	Veterinarian    *domain.VeterinarianProfile `json:"veterinarian_profile,omitempty"`
	Hospital        *domain.HospitalProfile     `json:"hospital_profile,omitempty"`
	LinkedProviders []domain.Provider           `json:"linked_providers"`
}

type UserService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	linkRepo    repository.SocialAccountRepository
}

func NewUserService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository, linkRepo repository.SocialAccountRepository) *UserService {
	return &UserService{userRepo: userRepo, profileRepo: profileRepo, linkRepo: linkRepo}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*UserView, error) {
	user, err := s.userRepo.FindActiveByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internalError("load user", err)
	}
	view := &UserView{User: user}
	if user.Role.UsesVeterinarianProfile() {
		view.Veterinarian, err = s.profileRepo.FindVeterinarianByUserID(ctx, userID)
	} else {
		view.Hospital, err = s.profileRepo.FindHospitalByUserID(ctx, userID)
	}
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, internalError("load role profile", err)
	}
	links, err := s.linkRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("list social links", err)
	}
	view.LinkedProviders = make([]domain.Provider, 0, len(links))
	for _, l := range links {
		view.LinkedProviders = append(view.LinkedProviders, l.Provider)
	}
	view.ProfileName = domain.ProfileName(user, view.Veterinarian, view.Hospital)
	view.EffectiveRole = domain.EffectiveRole(user, view.Veterinarian)
	return view, nil
}
