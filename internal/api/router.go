package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/metrics"
	"github.com/starford/raido/internal/resource"
)

// Options configures the API router.
type Options struct {
	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// Metrics, if non-nil, records every kind operation.
	Metrics *metrics.Metrics
}

// NewRouter creates a chi router with the routes of every kind mounted
// under /<plural>.
func NewRouter(engine *resource.Engine, opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

	r.Get("/kinds", NewKindsHandler(engine.Kinds()).ServeHTTP)

	for _, k := range engine.Kinds().Kinds() {
		h := NewHandler(engine, k.Name)
		m := opts.Metrics
		r.Route("/"+k.Plural, func(r chi.Router) {
			r.Get("/", instrument(m, k.Name, "list", h.List))
			r.Post("/", instrument(m, k.Name, "create", h.Create))
			r.Get("/search", instrument(m, k.Name, "search", h.Search))
			r.Get("/{id}", instrument(m, k.Name, "get", h.Get))
			r.Put("/{id}", instrument(m, k.Name, "update", h.Update))
			r.Patch("/{id}", instrument(m, k.Name, "update", h.Update))
			r.Delete("/{id}", instrument(m, k.Name, "delete", h.Delete))
		})
	}

	// SSE endpoint (protected by same auth middleware).
	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
