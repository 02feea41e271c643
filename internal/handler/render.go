package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/flash"
	"github.com/aryan0dhankhar/grievanceportal/internal/forms"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home", "about", "register", "login", "account",
	"grievance_form", "grievance", "user_grievances", "error",
}

// ImageURLs resolves stored picture names to public URLs
type ImageURLs interface {
	URL(kind imagestore.Kind, name string) string
}

// View is the data every page template receives
type View struct {
	Title     string
	Principal *domain.User
	Flashes   []flash.Message

	Form   url.Values
	Errors forms.Errors
	Next   string

	Legend     string
	Action     string
	Categories []string

	Grievance  *domain.Grievance
	Grievances domain.Page[*domain.Grievance]
	Author     *domain.User
	PageURL    string

	Status  int
	Message string
}

// Renderer executes page templates inside the shared layout
type Renderer struct {
	pages   map[string]*template.Template
	flashes *flash.Flasher
	logger  *slog.Logger
}

func NewRenderer(flashes *flash.Flasher, images ImageURLs, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	funcs := template.FuncMap{
		"profilePic": func(name string) string {
			if name == "" {
				name = domain.DefaultImageFile
			}
			return images.URL(imagestore.ProfilePictures, name)
		},
		"grievancePic": func(name string) string {
			return images.URL(imagestore.GrievancePictures, name)
		},
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, flashes: flashes, logger: logger}, nil
}

// Page renders name with status. Queued flash messages are drained and shown
// ahead of any carried by v.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name string, v *View) {
	t, ok := rn.pages[name]
	if !ok {
		rn.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if rn.flashes != nil {
		v.Flashes = append(rn.flashes.Pop(r), v.Flashes...)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		rn.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Status renders the fixed status page for code
func (rn *Renderer) Status(w http.ResponseWriter, r *http.Request, principal *domain.User, code int) {
	rn.Page(w, r, code, "error", &View{
		Title:     http.StatusText(code),
		Principal: principal,
		Status:    code,
		Message:   statusMessage(code),
	})
}

// Error maps a service error to its status page. Anything that is not a
// missing entity or an ownership violation is logged and shown as a 500.
func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, principal *domain.User, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rn.Status(w, r, principal, http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		rn.Status(w, r, principal, http.StatusForbidden)
	default:
		rn.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		rn.Status(w, r, principal, http.StatusInternalServerError)
	}
}

func statusMessage(code int) string {
	switch code {
	case http.StatusForbidden:
		return "You don't have permission to do that (403)"
	case http.StatusNotFound:
		return "Oops. Page Not Found (404)"
	default:
		return fmt.Sprintf("Something went wrong (%d)", code)
	}
}
