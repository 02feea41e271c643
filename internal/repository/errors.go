package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
)

const pqUniqueViolation = "23505"

// duplicateUser maps a unique constraint failure on users to a
// *domain.DuplicateUserError naming the colliding column, or returns nil.
func duplicateUser(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return &domain.DuplicateUserError{Field: conflictField(pqErr.Constraint + " " + pqErr.Detail)}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &domain.DuplicateUserError{Field: conflictField(liteErr.Error())}
	}

	return nil
}

func conflictField(msg string) string {
	if strings.Contains(msg, "email") {
		return "email"
	}
	return "username"
}
