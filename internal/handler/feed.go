package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/service"
)

// FeedHandler serves the paginated listings and the about page
type FeedHandler struct {
	grievances *service.GrievanceService
	render     *Renderer
	logger     *slog.Logger
}

func NewFeedHandler(grievances *service.GrievanceService, render *Renderer, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{grievances: grievances, render: render, logger: logger}
}

// Home handles GET / and GET /home
func (h *FeedHandler) Home(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	page, err := h.grievances.Feed(r.Context(), pageParam(r))
	if err != nil {
		h.render.Error(w, r, principal, err)
		return
	}
	h.render.Page(w, r, http.StatusOK, "home", &View{
		Principal:  principal,
		Grievances: page,
		PageURL:    "/home",
	})
}

// About handles GET /about
func (h *FeedHandler) About(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	h.render.Page(w, r, http.StatusOK, "about", &View{Title: "About", Principal: principal})
}

// UserGrievances handles GET /user/{username}
func (h *FeedHandler) UserGrievances(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	username := r.PathValue("username")
	author, page, err := h.grievances.ByAuthor(r.Context(), username, pageParam(r))
	if err != nil {
		h.render.Error(w, r, principal, err)
		return
	}
	h.render.Page(w, r, http.StatusOK, "user_grievances", &View{
		Title:      author.Username,
		Principal:  principal,
		Author:     author,
		Grievances: page,
		PageURL:    "/user/" + author.Username,
	})
}

// NotFound renders the 404 page for unmatched paths
func (h *FeedHandler) NotFound(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	h.render.Status(w, r, principal, http.StatusNotFound)
}
