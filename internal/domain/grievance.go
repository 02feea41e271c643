package domain

import (
	"context"
	"time"
)

// Categories is the fixed set a grievance can be filed under, in display order
var Categories = []string{
	"Infrastructure",
	"Sanitation",
	"Water Supply",
	"Electricity",
	"Public Safety",
	"Transport",
	"Education",
	"Health",
	"Other",
}

// IsCategory reports whether name is one of Categories
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Grievance is a complaint filed by a user
type Grievance struct {
	ID         int64
	Category   string
	Title      string
	Content    string
	DatePosted time.Time // Set once at creation; sole sort key
	ImageFile  string    // Optional attached picture, empty when none
	AuthorID   int64

	// Author carries the author's public fields when loaded by a read query
	Author *User
}

// IsAuthoredBy reports whether user wrote the grievance
func (g *Grievance) IsAuthoredBy(user *User) bool {
	return user != nil && g.AuthorID == user.ID
}

// GrievanceRepository defines data access for grievances.
// List methods order by DatePosted descending, newest first.
type GrievanceRepository interface {
	Create(ctx context.Context, g *Grievance) error
	GetByID(ctx context.Context, id int64) (*Grievance, error)
	Update(ctx context.Context, g *Grievance) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Grievance, int, error)
	ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*Grievance, int, error)
}

// Repositories groups the stores that take part in one unit of work
type Repositories interface {
	Users() UserRepository
	Grievances() GrievanceRepository
}

// Store hands out repositories bound to the database or to a transaction
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}
