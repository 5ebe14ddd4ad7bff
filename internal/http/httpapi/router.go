package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"aquarelle/internal/http/handlers"
	"aquarelle/internal/infra"
	"aquarelle/internal/infra/geoip"
	"aquarelle/internal/middleware"
)

// NewRouter wires the middleware stack and all routes.
func NewRouter(cfg *infra.Config, logger zerolog.Logger, countries geoip.CountryResolver, app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger, countries),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
		middleware.AuthJWT(cfg.JWTSecret),
	)

	r.Get("/v1/healthz", app.Health)
	if app.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.Metrics)
	}

	r.Route("/v1/renders", func(r chi.Router) {
		r.Post("/", app.RendersCreate)
		r.Get("/{render_id}", app.RenderStatus)
	})

	return r
}
