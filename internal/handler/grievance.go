package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/flash"
	"github.com/aryan0dhankhar/grievanceportal/internal/forms"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
	"github.com/aryan0dhankhar/grievanceportal/internal/security"
	"github.com/aryan0dhankhar/grievanceportal/internal/service"
)

// GrievanceHandler serves creating, reading, updating and deleting grievances
type GrievanceHandler struct {
	grievances *service.GrievanceService
	flashes    *flash.Flasher
	render     *Renderer
	logger     *slog.Logger
}

func NewGrievanceHandler(grievances *service.GrievanceService, flashes *flash.Flasher, render *Renderer, logger *slog.Logger) *GrievanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrievanceHandler{grievances: grievances, flashes: flashes, render: render, logger: logger}
}

// New handles GET and POST /grievance/new
func (h *GrievanceHandler) New(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	view := formView("New Grievance", "/grievance/new", principal)
	if r.Method != http.MethodPost {
		h.render.Page(w, r, http.StatusOK, "grievance_form", view)
		return
	}

	form, picture, closeUpload, ok := h.parse(w, r, principal, view)
	if !ok {
		return
	}
	defer closeUpload()

	_, err := h.grievances.Create(r.Context(), principal, service.GrievanceInput{
		Category: form.Category,
		Title:    form.Title,
		Content:  form.Content,
		Picture:  picture,
	})
	if h.failed(w, r, principal, view, err) {
		return
	}
	h.flashes.Add(w, r, flash.Success, "Your grievance has been submitted!")
	redirect(w, r, "/home")
}

// Detail handles GET /grievance/{id}
func (h *GrievanceHandler) Detail(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Status(w, r, principal, http.StatusNotFound)
		return
	}
	g, err := h.grievances.Get(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, principal, err)
		return
	}
	h.render.Page(w, r, http.StatusOK, "grievance", &View{Title: g.Title, Principal: principal, Grievance: g})
}

// Update handles GET and POST /grievance/{id}/update. Ownership is checked
// before the form is looked at.
func (h *GrievanceHandler) Update(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Status(w, r, principal, http.StatusNotFound)
		return
	}
	g, err := h.grievances.Editable(r.Context(), principal, id, security.ActionUpdate)
	if err != nil {
		h.render.Error(w, r, principal, err)
		return
	}

	target := "/grievance/" + strconv.FormatInt(id, 10)
	view := formView("Update Grievance", target+"/update", principal)
	if r.Method != http.MethodPost {
		view.Form = url.Values{"category": {g.Category}, "title": {g.Title}, "content": {g.Content}}
		h.render.Page(w, r, http.StatusOK, "grievance_form", view)
		return
	}

	form, picture, closeUpload, ok := h.parse(w, r, principal, view)
	if !ok {
		return
	}
	defer closeUpload()

	_, err = h.grievances.Update(r.Context(), principal, id, service.GrievanceInput{
		Category: form.Category,
		Title:    form.Title,
		Content:  form.Content,
		Picture:  picture,
	})
	if h.failed(w, r, principal, view, err) {
		return
	}
	h.flashes.Add(w, r, flash.Success, "Your grievance has been updated!")
	redirect(w, r, target)
}

// Delete handles POST /grievance/{id}/delete
func (h *GrievanceHandler) Delete(w http.ResponseWriter, r *http.Request, principal *domain.User) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render.Status(w, r, principal, http.StatusNotFound)
		return
	}
	if err := h.grievances.Delete(r.Context(), principal, id); err != nil {
		h.render.Error(w, r, principal, err)
		return
	}
	h.flashes.Add(w, r, flash.Success, "Your grievance has been deleted!")
	redirect(w, r, "/home")
}

// parse reads and validates the grievance form. When it returns false the
// response has already been written.
func (h *GrievanceHandler) parse(w http.ResponseWriter, r *http.Request, principal *domain.User, view *View) (forms.Grievance, *service.Upload, func(), bool) {
	values, picture, closeUpload, err := readForm(r)
	if err != nil {
		h.logger.Warn("failed to parse grievance form", slog.String("error", err.Error()))
		h.render.Status(w, r, principal, http.StatusBadRequest)
		return forms.Grievance{}, nil, nil, false
	}

	form, errs := forms.ParseGrievance(values, filename(picture))
	view.Form = url.Values{"category": {form.Category}, "title": {form.Title}, "content": {form.Content}}
	view.Errors = errs
	if errs.Any() {
		closeUpload()
		h.render.Page(w, r, http.StatusOK, "grievance_form", view)
		return forms.Grievance{}, nil, nil, false
	}
	return form, picture, closeUpload, true
}

// failed writes the response for a failed mutation and reports whether it did
func (h *GrievanceHandler) failed(w http.ResponseWriter, r *http.Request, principal *domain.User, view *View, err error) bool {
	if err == nil {
		return false
	}
	var storageErr *imagestore.StorageError
	if errors.As(err, &storageErr) {
		view.Flashes = append(view.Flashes, pictureRejected)
		h.render.Page(w, r, http.StatusUnprocessableEntity, "grievance_form", view)
		return true
	}
	h.render.Error(w, r, principal, err)
	return true
}

func formView(legend, action string, principal *domain.User) *View {
	return &View{
		Title:      legend,
		Principal:  principal,
		Legend:     legend,
		Action:     action,
		Categories: domain.Categories,
	}
}
