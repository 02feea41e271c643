package domain

import (
	"context"
	"time"
)

// DefaultImageFile is the profile picture every account starts with
const DefaultImageFile = "default.jpg"

// User represents a registered account
type User struct {
	ID           int64
	Username     string // Unique, 2-20 characters
	Email        string // Unique login identity, stored lower-cased
	PasswordHash string // Bcrypt digest, never rendered
	ImageFile    string // Stored profile picture name
	CreatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
}
