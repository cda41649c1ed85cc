package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tryon-api/internal/http/handlers"
	"tryon-api/internal/middleware"
	"tryon-api/internal/ratelimit"
)

// NewRouter assembles the middleware chain and API routes. The general
// limiter covers the whole API surface; the stricter try-on limiter is
// enforced inside the try-on handlers.
func NewRouter(app *handlers.App, general *ratelimit.Limiter, lookup middleware.CountryLookup) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.I18N("en", lookup),
		middleware.Auth(app.Config.SessionSecret),
		middleware.RateLimit(general),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.Health)

		r.Route("/try-ons", func(r chi.Router) {
			r.Post("/", app.SubmitTryOn)
			r.Get("/{jobID}", app.TryOnStatus)
		})

		r.Route("/hairstyles", func(r chi.Router) {
			r.Get("/", app.ListHairstyles)
			r.Post("/", app.CreateHairstyle)
			r.Get("/{styleID}", app.GetHairstyle)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", app.ListFavorites)
			r.Post("/", app.CreateFavorite)
			r.Delete("/{favoriteID}", app.DeleteFavorite)
		})
	})

	return r
}
