package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate")
	// ErrUnknownCity is returned when a relation references a city id that does not exist.
	ErrUnknownCity = errors.New("unknown city")
)

// DuplicateField names the unique column that rejected a user insert.
type DuplicateField string

const (
	DuplicateUsername DuplicateField = "username"
	DuplicateEmail    DuplicateField = "email"
)

// DuplicateUserError wraps ErrDuplicate with the offending field.
type DuplicateUserError struct {
	Field DuplicateField
}

func (e *DuplicateUserError) Error() string { return fmt.Sprintf("duplicate %s", e.Field) }
func (e *DuplicateUserError) Unwrap() error { return ErrDuplicate }

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// MarkEmailConfirmed flips the confirmation flag once. It reports false
	// when the account was already confirmed and leaves the timestamp untouched.
	MarkEmailConfirmed(ctx context.Context, id int64, at time.Time) (bool, error)
}
