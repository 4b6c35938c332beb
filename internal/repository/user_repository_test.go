package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vetmatch/identity/internal/domain"
)

func TestUserRepositoryWithdrawExcludesFromActiveLookups(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	reg := socialRegistration("vet@example.com", "01012345678", domain.ProviderGoogle, "g-1")
	if err := NewRegistrationStore(db).Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := users.MarkWithdrawn(ctx, reg.User.ID, at, strPtr("moving abroad")); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := users.MarkWithdrawn(ctx, reg.User.ID, at, nil); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected second withdraw to miss, got %v", err)
	}

	if _, err := users.FindActiveByEmail(ctx, "vet@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected withdrawn user excluded by email, got %v", err)
	}
	if _, err := users.FindActiveByID(ctx, reg.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected withdrawn user excluded by id, got %v", err)
	}

	withdrawn, err := users.FindWithdrawnByPhone(ctx, "01012345678")
	if err != nil {
		t.Fatalf("find withdrawn: %v", err)
	}
	if withdrawn.IsActive || withdrawn.DeletedAt == nil || !withdrawn.DeletedAt.Equal(at) {
		t.Fatalf("unexpected withdrawn state: active=%v deleted_at=%v", withdrawn.IsActive, withdrawn.DeletedAt)
	}
	if withdrawn.WithdrawReason == nil || *withdrawn.WithdrawReason != "moving abroad" {
		t.Fatalf("expected withdraw reason stored, got %v", withdrawn.WithdrawReason)
	}

	if err := users.Restore(ctx, reg.User.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored, err := users.FindActiveByEmail(ctx, "VET@example.com ")
	if err != nil {
		t.Fatalf("find restored: %v", err)
	}
	if !restored.IsActive || restored.DeletedAt != nil || restored.WithdrawReason != nil {
		t.Fatalf("expected clean restored state, got %+v", restored)
	}
}

func TestUserRepositoryWithdrawnEmailCanBeReusedAndBlocksRestore(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	store := NewRegistrationStore(db)

	first := socialRegistration("reuse@example.com", "01012345678", domain.ProviderGoogle, "g-1")
	if err := store.Register(ctx, first); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := users.MarkWithdrawn(ctx, first.User.ID, time.Now().UTC(), nil); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	second := socialRegistration("reuse@example.com", "01099998888", domain.ProviderKakao, "k-1")
	if err := store.Register(ctx, second); err != nil {
		t.Fatalf("expected withdrawn email to be reusable, got %v", err)
	}

	if err := users.Restore(ctx, first.User.ID); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected restore to collide with active email, got %v", err)
	}
}

func TestUserRepositoryFindWithdrawnByPhonePrefersLatest(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	store := NewRegistrationStore(db)

	older := socialRegistration("old@example.com", "01012345678", domain.ProviderGoogle, "g-old")
	if err := store.Register(ctx, older); err != nil {
		t.Fatalf("register older: %v", err)
	}
	if err := users.MarkWithdrawn(ctx, older.User.ID, time.Now().Add(-48*time.Hour).UTC(), nil); err != nil {
		t.Fatalf("withdraw older: %v", err)
	}
	newer := socialRegistration("new@example.com", "01012345678", domain.ProviderNaver, "n-new")
	if err := store.Register(ctx, newer); err != nil {
		t.Fatalf("register newer: %v", err)
	}
	if err := users.MarkWithdrawn(ctx, newer.User.ID, time.Now().UTC(), nil); err != nil {
		t.Fatalf("withdraw newer: %v", err)
	}

	got, err := users.FindWithdrawnByPhone(ctx, "01012345678")
	if err != nil {
		t.Fatalf("find withdrawn: %v", err)
	}
	if got.ID != newer.User.ID {
		t.Fatalf("expected latest withdrawn %d, got %d", newer.User.ID, got.ID)
	}
	if _, err := users.FindWithdrawnByPhone(ctx, "01000000000"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found for unknown phone, got %v", err)
	}
}

func TestSocialAccountRepositoryListByUser(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	reg := socialRegistration("vet@example.com", "01012345678", domain.ProviderGoogle, "g-1")
	if err := NewRegistrationStore(db).Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	extra := &domain.SocialAccountLink{UserID: reg.User.ID, Provider: domain.ProviderKakao, ProviderID: "k-1"}
	if err := db.Create(extra).Error; err != nil {
		t.Fatalf("create extra link: %v", err)
	}

	links, err := NewSocialAccountRepository(db).ListByUserID(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 2 || links[0].Provider != domain.ProviderGoogle || links[1].Provider != domain.ProviderKakao {
		t.Fatalf("unexpected links %+v", links)
	}
	if _, err := NewSocialAccountRepository(db).FindByProvider(ctx, domain.ProviderNaver, "missing"); !errors.Is(err, ErrSocialAccountNotFound) {
		t.Fatalf("expected ErrSocialAccountNotFound, got %v", err)
	}
}

func TestSocialAccountRepositoryStoreTokensKeepsRefreshWhenEmpty(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	reg := socialRegistration("vet@example.com", "01012345678", domain.ProviderNaver, "n-1")
	if err := NewRegistrationStore(db).Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	links := NewSocialAccountRepository(db)
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := links.StoreTokens(ctx, reg.Link.ID, "access-1", "refresh-1", &exp); err != nil {
		t.Fatalf("store tokens: %v", err)
	}
	if err := links.StoreTokens(ctx, reg.Link.ID, "access-2", "", &exp); err != nil {
		t.Fatalf("store tokens again: %v", err)
	}
	got, err := links.FindByProvider(ctx, domain.ProviderNaver, "n-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.AccessToken != "access-2" || got.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected tokens access=%q refresh=%q", got.AccessToken, got.RefreshToken)
	}
	if err := links.StoreTokens(ctx, 9999, "a", "", nil); !errors.Is(err, ErrSocialAccountNotFound) {
		t.Fatalf("expected ErrSocialAccountNotFound, got %v", err)
	}
}

func TestUserRepositoryUpdatePasswordHashSkipsWithdrawn(t *testing.T) {
	db := newRepositoryDBForTest(t)
	ctx := context.Background()
	reg := socialRegistration("vet@example.com", "01012345678", domain.ProviderGoogle, "g-1")
	if err := NewRegistrationStore(db).Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	users := NewUserRepository(db)
	if err := users.UpdatePasswordHash(ctx, reg.User.ID, "$argon2id$new"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	got, err := users.FindActiveByID(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PasswordHash == nil || *got.PasswordHash != "$argon2id$new" {
		t.Fatalf("expected hash updated, got %v", got.PasswordHash)
	}
	if err := users.MarkWithdrawn(ctx, reg.User.ID, time.Now(), nil); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := users.UpdatePasswordHash(ctx, reg.User.ID, "$argon2id$other"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for withdrawn user, got %v", err)
	}
}
