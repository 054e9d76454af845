package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

// NewRouter wires the studio API. lookup may be nil when no GeoIP database
// is configured.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.I18N(app.Config.DefaultLocale, lookup),
	)

	limit := middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/scenes", app.ListScenes)
		r.Get("/previews/{handle}", app.Preview)
		r.Get("/batches/current", app.CurrentBatch)
		r.Get("/downloads/archive", app.DownloadArchive)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", app.ListItems)
			r.Get("/{id}/result", app.DownloadResult)

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Post("/", app.UploadItems)
				r.Delete("/", app.ClearItems)
				r.Patch("/{id}", app.UpdateItem)
				r.Delete("/{id}", app.RemoveItem)
				r.Post("/{id}/retry", app.RetryItem)
			})
		})

		r.With(limit).Post("/batches", app.StartBatch)
	})

	return r
}
