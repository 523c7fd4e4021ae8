package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/starford/nestmaid/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// resolveLimiter, if non-nil, throttles the resolution and rendering routes.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, resolveLimiter *rate.Limiter) chi.Router {
	h := NewHandler(svc)
	ih := NewImportHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Resolution and dependency graph; these do real work per request.
	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(resolveLimiter))
		r.Post("/resolve", h.Resolve)
		r.Get("/resolved/*", h.Resolved)
		r.Get("/graph/*", h.Graph)
		r.Get("/graph.svg/*", h.GraphSVG)
	})

	r.Get("/dependents", h.Dependents)

	// Search.
	r.Get("/search", h.Search)

	// Document import (multipart upload).
	r.Post("/import", ih.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
