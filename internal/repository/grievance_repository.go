package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/pkg/database"
)

const grievanceSelect = `
	SELECT g.id, g.category, g.title, g.content, g.date_posted, g.image_file, g.author_id,
	       u.username, u.image_file
	FROM grievances g
	JOIN users u ON u.id = g.author_id
`

// GrievanceRepository implements domain.GrievanceRepository on PostgreSQL or SQLite
type GrievanceRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewGrievanceRepository creates a new grievance repository
func NewGrievanceRepository(db database.DBTX, logger *slog.Logger) *GrievanceRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &GrievanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a grievance and fills in its ID
func (r *GrievanceRepository) Create(ctx context.Context, g *domain.Grievance) error {
	if g.DatePosted.IsZero() {
		g.DatePosted = time.Now().UTC()
	}

	query := `
		INSERT INTO grievances (category, title, content, date_posted, image_file, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		g.Category,
		g.Title,
		g.Content,
		g.DatePosted,
		g.ImageFile,
		g.AuthorID,
	).Scan(&g.ID)

	if err != nil {
		r.logger.Error("failed to create grievance",
			slog.Int64("author_id", g.AuthorID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create grievance: %w", err)
	}

	return nil
}

// GetByID retrieves a grievance with its author
func (r *GrievanceRepository) GetByID(ctx context.Context, id int64) (*domain.Grievance, error) {
	row := r.db.QueryRowContext(ctx, grievanceSelect+` WHERE g.id = $1`, id)

	g, err := scanGrievance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get grievance: %w", err)
	}

	return g, nil
}

// Update writes the mutable fields. Author and posting date never change.
func (r *GrievanceRepository) Update(ctx context.Context, g *domain.Grievance) error {
	query := `
		UPDATE grievances
		SET category = $1, title = $2, content = $3, image_file = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query, g.Category, g.Title, g.Content, g.ImageFile, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update grievance: %w", err)
	}

	return expectOneRow(result)
}

// Delete removes a grievance
func (r *GrievanceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grievances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete grievance: %w", err)
	}

	return expectOneRow(result)
}

// List returns one page of all grievances, newest first, and the total count
func (r *GrievanceRepository) List(ctx context.Context, limit, offset int) ([]*domain.Grievance, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grievances`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count grievances: %w", err)
	}

	query := grievanceSelect + `
		ORDER BY g.date_posted DESC, g.id DESC
		LIMIT $1 OFFSET $2
	`
	items, err := r.query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListByAuthor returns one page of a user's grievances, newest first, and their total count
func (r *GrievanceRepository) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*domain.Grievance, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grievances WHERE author_id = $1`, authorID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count grievances: %w", err)
	}

	query := grievanceSelect + `
		WHERE g.author_id = $1
		ORDER BY g.date_posted DESC, g.id DESC
		LIMIT $2 OFFSET $3
	`
	items, err := r.query(ctx, query, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *GrievanceRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Grievance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list grievances",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list grievances: %w", err)
	}
	defer rows.Close()

	items := []*domain.Grievance{}
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grievance: %w", err)
		}
		items = append(items, g)
	}

	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGrievance(s scanner) (*domain.Grievance, error) {
	g := &domain.Grievance{Author: &domain.User{}}
	err := s.Scan(
		&g.ID,
		&g.Category,
		&g.Title,
		&g.Content,
		&g.DatePosted,
		&g.ImageFile,
		&g.AuthorID,
		&g.Author.Username,
		&g.Author.ImageFile,
	)
	if err != nil {
		return nil, err
	}
	g.Author.ID = g.AuthorID
	return g, nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
