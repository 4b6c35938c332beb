package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/vetmatch/identity/internal/domain"
)

func TestRegistrationStoreWritesUserLinkAndProfile(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	store := NewRegistrationStore(db)

	reg := socialRegistration("vet@example.com", "01012345678", domain.ProviderKakao, "k-1")
	if err := store.Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.ID == 0 || reg.Link.UserID != reg.User.ID || reg.Veterinarian.UserID != reg.User.ID {
		t.Fatalf("expected ids wired through, got user=%d link=%d profile=%d", reg.User.ID, reg.Link.UserID, reg.Veterinarian.UserID)
	}

	link, err := NewSocialAccountRepository(db).FindByProvider(ctx, domain.ProviderKakao, "k-1")
	if err != nil {
		t.Fatalf("find link: %v", err)
	}
	if link.UserID != reg.User.ID {
		t.Fatalf("expected link owner %d, got %d", reg.User.ID, link.UserID)
	}
	profile, err := NewProfileRepository(db).FindVeterinarianByUserID(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.Nickname != "dr.k-1" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestRegistrationStoreRollsBackOnDuplicateLink(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	store := NewRegistrationStore(db)

	if err := store.Register(ctx, socialRegistration("a@example.com", "01011112222", domain.ProviderNaver, "n-1")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	dup := socialRegistration("b@example.com", "01033334444", domain.ProviderNaver, "n-1")
	err := store.Register(ctx, dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if dup.User.ID != 0 {
		t.Fatalf("expected user id reset after rollback, got %d", dup.User.ID)
	}
	if _, err := NewUserRepository(db).FindActiveByEmail(ctx, "b@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected rolled back user to be absent, got %v", err)
	}
}

func TestRegistrationStoreRejectsDuplicateActiveEmail(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	store := NewRegistrationStore(db)

	if err := store.Register(ctx, socialRegistration("same@example.com", "01011112222", domain.ProviderGoogle, "g-1")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := store.Register(ctx, socialRegistration("same@example.com", "01055556666", domain.ProviderKakao, "k-9"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for same active email, got %v", err)
	}
}

func TestRegistrationStoreRequiresExactlyOneProfile(t *testing.T) {
	store := NewRegistrationStore(newRepositoryDBForTest(t))
	reg := socialRegistration("x@example.com", "01000000000", domain.ProviderGoogle, "g-x")
	reg.Hospital = &domain.HospitalProfile{HospitalName: "h", BusinessNumber: "1"}
	if err := store.Register(context.Background(), reg); !errors.Is(err, ErrRegistrationProfileMissing) {
		t.Fatalf("expected ErrRegistrationProfileMissing, got %v", err)
	}
}
