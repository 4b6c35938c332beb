package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vetmatch/identity/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrSocialAccountNotFound = errors.New("social account not found")
	ErrProfileNotFound       = errors.New("profile not found")
	// ErrDuplicate wraps unique-constraint violations on users, social
	// accounts and profiles.
	ErrDuplicate = errors.New("duplicate record")
)

func translate(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrSocialAccountNotFound), errors.Is(err, ErrProfileNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func record(ctx context.Context, repo, op string, err error) error {
	observability.RecordRepositoryOperation(ctx, repo, op, outcome(err))
	return err
}
