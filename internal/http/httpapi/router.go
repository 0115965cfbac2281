package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"weddingplanner/internal/http/handlers"
	"weddingplanner/internal/infra"
	"weddingplanner/internal/middleware"
	"weddingplanner/internal/observability"
)

// Options carries the router's cross-cutting dependencies.
type Options struct {
	Logger        infra.Logger
	Metrics       *observability.Metrics
	CORSOrigins   []string
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	// RateLimitPerMin bounds model calls per client; zero disables it.
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	// Base middlewares
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger, opts.Metrics),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/healthz", app.Health)
	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", opts.Metrics.Handler())
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", app.CredentialStatus)
			r.Get("/status", app.CredentialStatus)
			r.Post("/", app.CredentialSelect)
			r.Delete("/", app.CredentialClear)
		})

		r.Post("/dashboard", app.Dashboard)
		r.Get("/moodboard/videos/{job_id}", app.VideoStatus)
		r.Get("/moodboard/videos/{job_id}/content", app.VideoContent)

		// Everything below reaches the model.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

			r.Post("/plan", app.Plan)
			r.Post("/budget", app.Budget)
			r.Post("/seating", app.Seating)
			r.Post("/sos", app.SOS)

			r.Post("/moodboard/images", app.MoodboardImage)
			r.Post("/moodboard/videos", app.VideosGenerate)
		})
	})

	return r
}
