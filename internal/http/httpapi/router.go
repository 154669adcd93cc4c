package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"clipforge/internal/http/handlers"
	"clipforge/internal/middleware"
)

// Options carries the cross-cutting router dependencies.
type Options struct {
	Logger         zerolog.Logger
	JWTSecret      string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Locale(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, opts.RateWindow))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/videos", func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Post("/generate", app.VideosGenerate)
		r.Get("/jobs/{job_id}", app.VideoStatus)
	})

	return r
}
