package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/grievanceportal/internal/security/session"
)

// Routes bundles the handlers mounted by NewRouter
type Routes struct {
	Sessions   *session.Manager
	Auth       *AuthHandler
	Grievances *GrievanceHandler
	Feed       *FeedHandler
	Health     *HealthHandler

	// Static serves stored pictures under /static/; nil when pictures live
	// in object storage.
	Static http.Handler
}

// NewRouter registers every page and operational endpoint
func NewRouter(rt Routes) *http.ServeMux {
	optional, required := rt.Sessions.Optional, rt.Sessions.Required

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", optional(rt.Feed.Home))
	mux.Handle("GET /home", optional(rt.Feed.Home))
	mux.Handle("GET /about", optional(rt.Feed.About))
	mux.Handle("GET /user/{username}", optional(rt.Feed.UserGrievances))

	mux.Handle("GET /register", optional(rt.Auth.Register))
	mux.Handle("POST /register", optional(rt.Auth.Register))
	mux.Handle("GET /login", optional(rt.Auth.Login))
	mux.Handle("POST /login", optional(rt.Auth.Login))
	mux.Handle("GET /logout", optional(rt.Auth.Logout))
	mux.Handle("GET /account", required(rt.Auth.Account))
	mux.Handle("POST /account", required(rt.Auth.Account))

	mux.Handle("GET /grievance/new", required(rt.Grievances.New))
	mux.Handle("POST /grievance/new", required(rt.Grievances.New))
	mux.Handle("GET /grievance/{id}", optional(rt.Grievances.Detail))
	mux.Handle("GET /grievance/{id}/update", required(rt.Grievances.Update))
	mux.Handle("POST /grievance/{id}/update", required(rt.Grievances.Update))
	mux.Handle("POST /grievance/{id}/delete", required(rt.Grievances.Delete))

	if rt.Health != nil {
		mux.HandleFunc("GET /healthz", rt.Health.Health)
		mux.HandleFunc("GET /readyz", rt.Health.Ready)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	if rt.Static != nil {
		mux.Handle("GET /static/", rt.Static)
	}
	mux.Handle("/", optional(rt.Feed.NotFound))
	return mux
}
