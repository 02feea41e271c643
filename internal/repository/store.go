package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/pkg/database"
)

// Store vends repositories bound either to the pool or to a transaction
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	users  *UserRepository
	griev  *GrievanceRepository
}

// NewStore creates a store on top of db
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger,
		users:  NewUserRepository(db, logger),
		griev:  NewGrievanceRepository(db, logger),
	}
}

func (s *Store) Users() domain.UserRepository           { return s.users }
func (s *Store) Grievances() domain.GrievanceRepository { return s.griev }

// WithTx runs fn with repositories that share one transaction
func (s *Store) WithTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		return fn(txRepos{
			users: NewUserRepository(tx, s.logger),
			griev: NewGrievanceRepository(tx, s.logger),
		})
	})
}

type txRepos struct {
	users *UserRepository
	griev *GrievanceRepository
}

func (t txRepos) Users() domain.UserRepository           { return t.users }
func (t txRepos) Grievances() domain.GrievanceRepository { return t.griev }
