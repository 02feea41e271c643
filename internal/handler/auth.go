package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/flash"
	"github.com/aryan0dhankhar/grievanceportal/internal/forms"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/audit"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/session"
	"github.com/aryan0dhankhar/grievanceportal/internal/service"
)

// AuthHandler serves registration, login, logout and the account page
type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	flashes  *flash.Flasher
	render   *Renderer
	audit    *audit.Logger
	logger   *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	sessions *session.Manager,
	flashes *flash.Flasher,
	render *Renderer,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &AuthHandler{
		auth:     authService,
		sessions: sessions,
		flashes:  flashes,
		render:   render,
		audit:    auditLog,
		logger:   logger,
	}
}

// Register handles GET and POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	if principal != nil {
		redirect(w, r, "/home")
		return
	}
	if r.Method != http.MethodPost {
		h.render.Page(w, r, http.StatusOK, "register", &View{Title: "Register"})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.render.Status(w, r, nil, http.StatusBadRequest)
		return
	}
	form, errs := forms.ParseRegistration(r.PostForm)
	if !errs.Any() {
		_, err := h.auth.Register(r.Context(), service.RegisterInput{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		var dup *domain.DuplicateUserError
		switch {
		case errors.As(err, &dup):
			errs.DuplicateUser(dup.Field)
		case err != nil:
			h.render.Error(w, r, nil, err)
			return
		default:
			h.flashes.Add(w, r, flash.Success, "Account created successfully!")
			redirect(w, r, "/login")
			return
		}
	}

	h.render.Page(w, r, http.StatusOK, "register", &View{
		Title:  "Register",
		Form:   url.Values{"username": {form.Username}, "email": {form.Email}},
		Errors: errs,
	})
}

// Login handles GET and POST /login. A local ?next= path is honoured after
// a successful login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	if principal != nil {
		redirect(w, r, "/home")
		return
	}
	next := session.SafeNext(r.URL.Query().Get("next"))
	if r.Method != http.MethodPost {
		h.render.Page(w, r, http.StatusOK, "login", &View{Title: "Login", Next: next})
		return
	}

	if err := r.ParseForm(); err != nil {
		h.render.Status(w, r, nil, http.StatusBadRequest)
		return
	}
	form, errs := forms.ParseLogin(r.PostForm)
	view := &View{
		Title:  "Login",
		Next:   next,
		Form:   url.Values{"email": {form.Email}},
		Errors: errs,
	}
	if errs.Any() {
		h.render.Page(w, r, http.StatusOK, "login", view)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), form.Email, form.Password)
	if errors.Is(err, domain.ErrAuthenticationFailed) {
		view.Flashes = append(view.Flashes, flash.Message{
			Category: flash.Danger,
			Text:     "Login Unsuccessful! Please check Username and Password.",
		})
		h.render.Page(w, r, http.StatusOK, "login", view)
		return
	}
	if err != nil {
		h.render.Error(w, r, nil, err)
		return
	}

	if err := h.sessions.Login(r.Context(), w, user, form.Remember); err != nil {
		h.render.Error(w, r, nil, err)
		return
	}
	h.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.Bool("remember", form.Remember))

	if next == "" {
		next = "/home"
	}
	redirect(w, r, next)
}

// Logout handles GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	if userID := h.sessions.Logout(r.Context(), w, r); userID != 0 {
		h.audit.LogLogout(r.Context(), userID)
	}
	redirect(w, r, "/home")
}

// Account handles GET and POST /account
func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	if r.Method != http.MethodPost {
		h.render.Page(w, r, http.StatusOK, "account", &View{
			Title:     "Account",
			Principal: principal,
			Form:      url.Values{"username": {principal.Username}, "email": {principal.Email}},
		})
		return
	}

	values, picture, closeUpload, err := readForm(r)
	if err != nil {
		h.render.Status(w, r, principal, http.StatusBadRequest)
		return
	}
	defer closeUpload()

	form, errs := forms.ParseAccount(values, filename(picture))
	view := &View{
		Title:     "Account",
		Principal: principal,
		Form:      url.Values{"username": {form.Username}, "email": {form.Email}},
		Errors:    errs,
	}
	if errs.Any() {
		h.render.Page(w, r, http.StatusOK, "account", view)
		return
	}

	_, err = h.auth.UpdateAccount(r.Context(), principal, service.AccountInput{
		Username: form.Username,
		Email:    form.Email,
		Picture:  picture,
	})
	var dup *domain.DuplicateUserError
	var storageErr *imagestore.StorageError
	switch {
	case errors.As(err, &dup):
		errs.DuplicateUser(dup.Field)
		h.render.Page(w, r, http.StatusOK, "account", view)
	case errors.As(err, &storageErr):
		view.Flashes = append(view.Flashes, pictureRejected)
		h.render.Page(w, r, http.StatusUnprocessableEntity, "account", view)
	case err != nil:
		h.render.Error(w, r, principal, err)
	default:
		h.flashes.Add(w, r, flash.Success, "Your account has been updated!")
		redirect(w, r, "/account")
	}
}

var pictureRejected = flash.Message{
	Category: flash.Danger,
	Text:     "The picture could not be saved. Please upload a valid image.",
}
