package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/metrics"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/tracing"
	"github.com/aryan0dhankhar/grievanceportal/internal/security"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/audit"
)

// DefaultPageSize is how many grievances a feed page shows
const DefaultPageSize = 3

// GrievanceService handles grievance lifecycle and feeds
type GrievanceService struct {
	store    domain.Store
	images   ImageStore
	authz    *security.AuthorizationService
	audit    *audit.Logger
	clock    Clock
	pageSize int
	logger   *slog.Logger
}

// GrievanceInput is a validated grievance form
type GrievanceInput struct {
	Category string
	Title    string
	Content  string
	Picture  *Upload
}

// NewGrievanceService creates a new grievance service
func NewGrievanceService(
	store domain.Store,
	images ImageStore,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	clock Clock,
	pageSize int,
	logger *slog.Logger,
) *GrievanceService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if authz == nil {
		authz = security.NewAuthorizationService(auditLog, logger)
	}
	if clock == nil {
		clock = RealClock{}
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &GrievanceService{
		store:    store,
		images:   images,
		authz:    authz,
		audit:    auditLog,
		clock:    clock,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Create files a grievance for author. The picture, if any, is stored first
// and removed again when the record cannot be written.
func (s *GrievanceService) Create(ctx context.Context, author *domain.User, in GrievanceInput) (*domain.Grievance, error) {
	ctx, span := tracing.Tracer().Start(ctx, "GrievanceService.Create")
	defer span.End()

	g := &domain.Grievance{
		Category:   in.Category,
		Title:      in.Title,
		Content:    in.Content,
		DatePosted: s.clock.Now().UTC(),
		AuthorID:   author.ID,
		Author:     author,
	}

	stored, err := s.storePicture(ctx, in.Picture)
	if err != nil {
		metrics.ObserveGrievanceOperation("create", "storage_error")
		s.audit.LogGrievance(ctx, author.ID, "create", 0, audit.StatusFailure, "picture rejected")
		return nil, err
	}
	g.ImageFile = stored

	err = s.store.WithTx(ctx, func(repos domain.Repositories) error {
		return repos.Grievances().Create(ctx, g)
	})
	if err != nil {
		discardImage(ctx, s.images, imagestore.GrievancePictures, stored, s.logger.Warn)
		metrics.ObserveGrievanceOperation("create", "error")
		s.logger.Error("failed to create grievance",
			slog.Int64("author_id", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("create grievance: %w", err)
	}

	span.SetAttributes(attribute.Int64("grievance.id", g.ID))
	metrics.ObserveGrievanceOperation("create", "success")
	s.audit.LogGrievance(ctx, author.ID, "create", g.ID, audit.StatusSuccess, "")
	s.logger.Info("grievance created",
		slog.Int64("grievance_id", g.ID),
		slog.Int64("author_id", author.ID),
		slog.String("category", g.Category),
	)
	return g, nil
}

// Get returns a grievance or an error wrapping domain.ErrNotFound
func (s *GrievanceService) Get(ctx context.Context, id int64) (*domain.Grievance, error) {
	g, err := s.store.Grievances().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get grievance %d: %w", id, err)
	}
	return g, nil
}

// Editable loads a grievance and checks that actor may change it with action
func (s *GrievanceService) Editable(ctx context.Context, actor *domain.User, id int64, action security.Action) (*domain.Grievance, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeGrievance(ctx, actor, g, action); err != nil {
		metrics.ObserveGrievanceOperation(string(action), "forbidden")
		return nil, err
	}
	return g, nil
}

// Update rewrites the category, title, content and optionally the picture of
// a grievance written by actor.
func (s *GrievanceService) Update(ctx context.Context, actor *domain.User, id int64, in GrievanceInput) (*domain.Grievance, error) {
	ctx, span := tracing.Tracer().Start(ctx, "GrievanceService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("grievance.id", id))

	g, err := s.Editable(ctx, actor, id, security.ActionUpdate)
	if err != nil {
		return nil, err
	}

	updated := *g
	updated.Category = in.Category
	updated.Title = in.Title
	updated.Content = in.Content

	stored, err := s.storePicture(ctx, in.Picture)
	if err != nil {
		metrics.ObserveGrievanceOperation("update", "storage_error")
		s.audit.LogGrievance(ctx, actor.ID, "update", id, audit.StatusFailure, "picture rejected")
		return nil, err
	}
	if stored != "" {
		updated.ImageFile = stored
	}

	err = s.store.WithTx(ctx, func(repos domain.Repositories) error {
		return repos.Grievances().Update(ctx, &updated)
	})
	if err != nil {
		discardImage(ctx, s.images, imagestore.GrievancePictures, stored, s.logger.Warn)
		metrics.ObserveGrievanceOperation("update", "error")
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to update grievance",
				slog.Int64("grievance_id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("update grievance %d: %w", id, err)
	}

	if stored != "" {
		discardImage(ctx, s.images, imagestore.GrievancePictures, g.ImageFile, s.logger.Warn)
	}
	metrics.ObserveGrievanceOperation("update", "success")
	s.audit.LogGrievance(ctx, actor.ID, "update", id, audit.StatusSuccess, "")
	return &updated, nil
}

// Delete removes a grievance written by actor together with its picture
func (s *GrievanceService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	ctx, span := tracing.Tracer().Start(ctx, "GrievanceService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("grievance.id", id))

	g, err := s.Editable(ctx, actor, id, security.ActionDelete)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(repos domain.Repositories) error {
		return repos.Grievances().Delete(ctx, id)
	})
	if err != nil {
		metrics.ObserveGrievanceOperation("delete", "error")
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to delete grievance",
				slog.Int64("grievance_id", id),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("delete grievance %d: %w", id, err)
	}

	discardImage(ctx, s.images, imagestore.GrievancePictures, g.ImageFile, s.logger.Warn)
	metrics.ObserveGrievanceOperation("delete", "success")
	s.audit.LogGrievance(ctx, actor.ID, "delete", id, audit.StatusSuccess, "")
	s.logger.Info("grievance deleted", slog.Int64("grievance_id", id), slog.Int64("author_id", actor.ID))
	return nil
}

// Feed returns one page of all grievances, newest first. A page past the
// end is empty rather than an error.
func (s *GrievanceService) Feed(ctx context.Context, page int) (domain.Page[*domain.Grievance], error) {
	page = max(page, 1)
	items, total, err := s.store.Grievances().List(ctx, s.pageSize, domain.Offset(page, s.pageSize))
	if err != nil {
		return domain.Page[*domain.Grievance]{}, fmt.Errorf("list grievances: %w", err)
	}
	return domain.NewPage(items, page, s.pageSize, total), nil
}

// ByAuthor returns the named user and one page of their grievances.
// An unknown username yields domain.ErrNotFound.
func (s *GrievanceService) ByAuthor(ctx context.Context, username string, page int) (*domain.User, domain.Page[*domain.Grievance], error) {
	page = max(page, 1)
	author, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.Page[*domain.Grievance]{}, fmt.Errorf("get author %q: %w", username, err)
	}
	items, total, err := s.store.Grievances().ListByAuthor(ctx, author.ID, s.pageSize, domain.Offset(page, s.pageSize))
	if err != nil {
		return nil, domain.Page[*domain.Grievance]{}, fmt.Errorf("list grievances by %q: %w", username, err)
	}
	return author, domain.NewPage(items, page, s.pageSize, total), nil
}

func (s *GrievanceService) storePicture(ctx context.Context, pic *Upload) (string, error) {
	if pic == nil {
		return "", nil
	}
	return s.images.Store(ctx, imagestore.GrievancePictures, pic.Filename, pic.Body, nil)
}
