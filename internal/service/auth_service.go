package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/metrics"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/tracing"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/audit"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/auth"
)

// AuthService handles registration, credential checks and account updates
type AuthService struct {
	store  domain.Store
	hasher *auth.Hasher
	images ImageStore
	audit  *audit.Logger
	logger *slog.Logger
}

// RegisterInput is a validated registration form
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccountInput is a validated account update
type AccountInput struct {
	Username string
	Email    string
	Picture  *Upload
}

// NewAuthService creates a new authentication service
func NewAuthService(
	store domain.Store,
	hasher *auth.Hasher,
	images ImageStore,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}

	return &AuthService{
		store:  store,
		hasher: hasher,
		images: images,
		audit:  auditLog,
		logger: logger,
	}
}

// Register creates a new account. A taken username or email yields a
// *domain.DuplicateUserError and nothing is written.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AuthService.Register")
	defer span.End()

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		metrics.ObserveRegistration("error")
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		ImageFile:    domain.DefaultImageFile,
	}

	err = s.store.WithTx(ctx, func(repos domain.Repositories) error {
		if err := ensureAvailable(ctx, repos.Users(), user.Username, user.Email, 0); err != nil {
			return err
		}
		return repos.Users().Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			metrics.ObserveRegistration("duplicate")
			s.audit.LogRegistration(ctx, 0, audit.StatusFailure, err.Error())
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		metrics.ObserveRegistration("error")
		return nil, fmt.Errorf("register user: %w", err)
	}

	metrics.ObserveRegistration("success")
	s.audit.LogRegistration(ctx, user.ID, audit.StatusSuccess, "")
	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield domain.ErrAuthenticationFailed.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AuthService.Authenticate")
	defer span.End()

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to load user for login", slog.String("error", err.Error()))
			metrics.ObserveLogin("error")
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		s.logger.Info("login attempt with unknown email")
		metrics.ObserveLogin("failure")
		s.audit.LogLogin(ctx, 0, audit.StatusFailure, "unknown email")
		return nil, domain.ErrAuthenticationFailed
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.logger.Info("login failed with wrong password", slog.Int64("user_id", user.ID))
		metrics.ObserveLogin("failure")
		s.audit.LogLogin(ctx, user.ID, audit.StatusFailure, "wrong password")
		return nil, domain.ErrAuthenticationFailed
	}

	metrics.ObserveLogin("success")
	s.audit.LogLogin(ctx, user.ID, audit.StatusSuccess, "")
	return user, nil
}

// UpdateAccount changes the username, email and optionally the profile
// picture of user. The new picture is resized before it is stored; the
// replaced one is removed once the update commits.
func (s *AuthService) UpdateAccount(ctx context.Context, user *domain.User, in AccountInput) (*domain.User, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AuthService.UpdateAccount")
	defer span.End()

	updated := *user
	updated.Username = in.Username
	updated.Email = in.Email

	var stored string
	if in.Picture != nil {
		name, err := s.images.Store(ctx, imagestore.ProfilePictures, in.Picture.Filename, in.Picture.Body,
			imagestore.Thumbnail(imagestore.ProfileThumbnailSize, imagestore.ProfileThumbnailSize))
		if err != nil {
			s.audit.LogAccountUpdate(ctx, user.ID, audit.StatusFailure, "picture rejected")
			return nil, err
		}
		stored = name
		updated.ImageFile = name
	}

	err := s.store.WithTx(ctx, func(repos domain.Repositories) error {
		if err := ensureAvailable(ctx, repos.Users(), updated.Username, updated.Email, user.ID); err != nil {
			return err
		}
		return repos.Users().Update(ctx, &updated)
	})
	if err != nil {
		discardImage(ctx, s.images, imagestore.ProfilePictures, stored, s.logger.Warn)
		s.audit.LogAccountUpdate(ctx, user.ID, audit.StatusFailure, err.Error())
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, err
		}
		s.logger.Error("failed to update account",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("update account: %w", err)
	}

	if stored != "" && user.ImageFile != stored {
		discardImage(ctx, s.images, imagestore.ProfilePictures, user.ImageFile, s.logger.Warn)
	}
	s.audit.LogAccountUpdate(ctx, user.ID, audit.StatusSuccess, "")
	return &updated, nil
}

// ensureAvailable rejects a username or email held by an account other than
// selfID. Pass 0 when registering.
func ensureAvailable(ctx context.Context, users domain.UserRepository, username, email string, selfID int64) error {
	if u, err := users.GetByUsername(ctx, username); err == nil && u.ID != selfID {
		return &domain.DuplicateUserError{Field: "username"}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if u, err := users.GetByEmail(ctx, email); err == nil && u.ID != selfID {
		return &domain.DuplicateUserError{Field: "email"}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
