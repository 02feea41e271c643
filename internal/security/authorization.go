package security

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/audit"
)

// Action identifies what operation is being performed
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AuthorizationService enforces that only a grievance's author may change it
type AuthorizationService struct {
	logger *slog.Logger
	audit  *audit.Logger
}

// NewAuthorizationService creates a new ownership-based authorization service
func NewAuthorizationService(auditLog *audit.Logger, logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &AuthorizationService{logger: logger, audit: auditLog}
}

// AuthorizeGrievance returns an error wrapping domain.ErrForbidden unless user
// wrote g. Anonymous users are never authorized.
func (a *AuthorizationService) AuthorizeGrievance(ctx context.Context, user *domain.User, g *domain.Grievance, action Action) error {
	if g.IsAuthoredBy(user) {
		return nil
	}

	var userID int64
	if user != nil {
		userID = user.ID
	}
	a.logger.Warn("resource access denied",
		slog.Int64("user_id", userID),
		slog.Int64("grievance_id", g.ID),
		slog.Int64("author_id", g.AuthorID),
		slog.String("action", string(action)),
	)
	a.audit.LogDenied(ctx, userID, "grievance", strconv.FormatInt(g.ID, 10), "not the author")

	return fmt.Errorf("%s grievance %d: %w", action, g.ID, domain.ErrForbidden)
}
