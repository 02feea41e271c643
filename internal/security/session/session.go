// Package session ties a signed cookie to a revocable server-side record and
// resolves the logged-in user for each request.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/auth"
)

// CookieName is the cookie holding the signed session token
const CookieName = "grievance_session"

// UserLookup loads the principal named by a session
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// HandlerFunc receives the resolved principal explicitly; nil means anonymous
type HandlerFunc func(w http.ResponseWriter, r *http.Request, principal *domain.User)

type Options struct {
	TTL         time.Duration
	RememberTTL time.Duration
	Secure      bool
}

type Manager struct {
	tokens *auth.TokenManager
	store  Store
	users  UserLookup
	opts   Options
	logger *slog.Logger
}

func NewManager(tokens *auth.TokenManager, store Store, users UserLookup, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.RememberTTL <= 0 {
		opts.RememberTTL = 30 * 24 * time.Hour
	}
	return &Manager{tokens: tokens, store: store, users: users, opts: opts, logger: logger}
}

// Login opens a session for user and sets the cookie. A remembered login
// gets a persistent cookie; otherwise the cookie ends with the browser.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, user *domain.User, remember bool) error {
	ttl := m.opts.TTL
	if remember {
		ttl = m.opts.RememberTTL
	}

	id := uuid.NewString()
	if err := m.store.Save(ctx, id, user.ID, ttl); err != nil {
		return err
	}
	token, err := m.tokens.GenerateToken(user.ID, id, remember, ttl)
	if err != nil {
		_ = m.store.Delete(ctx, id)
		return fmt.Errorf("sign session token: %w", err)
	}

	cookie := m.cookie(token)
	if remember {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
	return nil
}

// Logout revokes the request's session, if any, and expires the cookie.
// It returns the id of the user that was logged out, or 0.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) int64 {
	var userID int64
	if claims := m.claims(r); claims != nil {
		userID = claims.UserID
		if err := m.store.Delete(ctx, claims.SessionID()); err != nil {
			m.logger.Error("failed to delete session",
				slog.String("session_id", claims.SessionID()),
				slog.String("error", err.Error()),
			)
		}
	}

	expired := m.cookie("")
	expired.MaxAge = -1
	expired.Expires = time.Unix(0, 0)
	http.SetCookie(w, expired)
	return userID
}

// Principal returns the logged-in user, or nil for an anonymous request.
// Any invalid, revoked or dangling session counts as anonymous.
func (m *Manager) Principal(r *http.Request) *domain.User {
	claims := m.claims(r)
	if claims == nil {
		return nil
	}

	ctx := r.Context()
	userID, err := m.store.Lookup(ctx, claims.SessionID())
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			m.logger.Error("session lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	if userID != claims.UserID {
		m.logger.Warn("session user mismatch", slog.String("session_id", claims.SessionID()))
		return nil
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.logger.Error("failed to load session user",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return user
}

// Optional resolves the principal and passes it, possibly nil, to h
func (m *Manager) Optional(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, m.Principal(r))
	})
}

// Required sends anonymous requests to the login page with a next parameter
func (m *Manager) Required(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := m.Principal(r)
		if principal == nil {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		h(w, r, principal)
	})
}

// LoginURL builds the login redirect that returns to next afterwards
func LoginURL(next string) string {
	if SafeNext(next) == "" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local path, otherwise ""
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

func (m *Manager) claims(r *http.Request) *auth.Claims {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	claims, err := m.tokens.ValidateToken(c.Value)
	if err != nil {
		m.logger.Debug("rejected session token", slog.String("error", err.Error()))
		return nil
	}
	return claims
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
