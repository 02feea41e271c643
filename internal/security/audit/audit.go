package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/security/middleware"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, now: time.Now}
}

// LogAction writes one audit record. userID is 0 for anonymous callers.
func (al *Logger) LogAction(ctx context.Context, userID int64, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", middleware.RequestIDFromContext(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogRegistration(ctx context.Context, userID int64, status, details string) {
	al.LogAction(ctx, userID, "register", "user", formatID(userID), status, details)
}

func (al *Logger) LogLogin(ctx context.Context, userID int64, status, details string) {
	al.LogAction(ctx, userID, "login", "session", "", status, details)
}

func (al *Logger) LogLogout(ctx context.Context, userID int64) {
	al.LogAction(ctx, userID, "logout", "session", "", StatusSuccess, "")
}

func (al *Logger) LogAccountUpdate(ctx context.Context, userID int64, status, details string) {
	al.LogAction(ctx, userID, "update", "user", formatID(userID), status, details)
}

func (al *Logger) LogGrievance(ctx context.Context, userID int64, action string, grievanceID int64, status, details string) {
	al.LogAction(ctx, userID, action, "grievance", formatID(grievanceID), status, details)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, resource, resourceID, reason string) {
	al.LogAction(ctx, userID, "access_denied", resource, resourceID, StatusDenied, reason)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
