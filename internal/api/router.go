package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/surveyportal/internal/api/middleware"
	"github.com/kiranshivaraju/surveyportal/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateUpload http.HandlerFunc
	ListUploads  http.HandlerFunc
	GetUpload    http.HandlerFunc
	RetryUpload  http.HandlerFunc
	ListImports  http.HandlerFunc

	OpenReview    http.HandlerFunc
	GetReview     http.HandlerFunc
	ToggleItem    http.HandlerFunc
	SelectAll     http.HandlerFunc
	DeselectAll   http.HandlerFunc
	ConfirmReview http.HandlerFunc

	ListMoves        http.HandlerFunc
	GetMove          http.HandlerFunc
	UpdateMoveStatus http.HandlerFunc

	InvoicePreview http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/uploads", func(r chi.Router) {
			r.Post("/", orNotImplemented(deps.CreateUpload))
			r.Get("/", orNotImplemented(deps.ListUploads))
			r.Get("/{uploadID}", orNotImplemented(deps.GetUpload))
			r.Post("/{uploadID}/retry", orNotImplemented(deps.RetryUpload))
			r.Get("/{uploadID}/imports", orNotImplemented(deps.ListImports))
			r.Post("/{uploadID}/reviews", orNotImplemented(deps.OpenReview))
		})

		r.Route("/api/v1/reviews/{reviewID}", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetReview))
			r.Post("/items/{itemID}/toggle", orNotImplemented(deps.ToggleItem))
			r.Post("/select-all", orNotImplemented(deps.SelectAll))
			r.Post("/deselect-all", orNotImplemented(deps.DeselectAll))
			r.Post("/confirm", orNotImplemented(deps.ConfirmReview))
		})

		r.Get("/api/v1/moves", orNotImplemented(deps.ListMoves))
		r.Get("/api/v1/moves/{moveID}", orNotImplemented(deps.GetMove))
		r.Put("/api/v1/moves/{moveID}/status", orNotImplemented(deps.UpdateMoveStatus))

		r.Post("/api/v1/invoices/preview", orNotImplemented(deps.InvoicePreview))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
