package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

const insertUserQuery = `(?s)^\s*INSERT\s+INTO\s+users\s*\(username,\s*email,\s*password_hash,\s*image_file,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id\s*$`

func TestUserCreate_Success(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery(insertUserQuery).
		WithArgs("alice", "alice@example.com", "hash", domain.DefaultImageFile, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	u := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, domain.DefaultImageFile, u.ImageFile)
	assert.False(t, u.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_UniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		wantField  string
	}{
		{name: "email", constraint: "users_email_key", wantField: "email"},
		{name: "username", constraint: "users_username_key", wantField: "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserRepository(db, nil)

			mock.ExpectQuery(insertUserQuery).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

			err := repo.Create(context.Background(), &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})

			require.ErrorIs(t, err, domain.ErrDuplicateUser)
			var dup *domain.DuplicateUserError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.wantField, dup.Field)
		})
	}
}

func TestUserCreate_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery(insertUserQuery).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &domain.User{Username: "alice", Email: "alice@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateUser)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*username,\s*email,\s*password_hash,\s*image_file,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrievanceUpdate_Missing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewGrievanceRepository(db, nil)

	mock.ExpectExec(`(?s)^\s*UPDATE\s+grievances\s+SET`).
		WithArgs("Water Supply", "t", "c", "", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.Grievance{ID: 9, Category: "Water Supply", Title: "t", Content: "c"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceList_Query(t *testing.T) {
	db, mock := newMock(t)
	repo := NewGrievanceRepository(db, nil)
	posted := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM grievances$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`(?s)FROM\s+grievances\s+g\s+JOIN\s+users\s+u.*ORDER\s+BY\s+g\.date_posted\s+DESC,\s*g\.id\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2`).
		WithArgs(3, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "title", "content", "date_posted", "image_file", "author_id", "username", "image_file"}).
			AddRow(int64(1), "Health", "Clinic closed", "Since May", posted, "", int64(7), "alice", "default.jpg"))

	items, total, err := repo.List(context.Background(), 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Author.Username)
	assert.Equal(t, int64(7), items[0].Author.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
