package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in PasswordHash.
//
// EmailConfirmedOn is nil until the confirmation link is used.
type User struct {
	ID               int64
	Username         string
	Email            string
	PasswordHash     string
	EmailConfirmed   bool
	EmailConfirmedOn *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
