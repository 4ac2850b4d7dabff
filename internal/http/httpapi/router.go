package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

const rateWindow = time.Minute

// NewRouter wires the HTTP surface. Authentication, rate limiting and
// locale detection wrap everything under /v1 except the health probe.
func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
		middleware.I18N("en", countryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(app.Config.RateLimitPerMin, rateWindow),
			middleware.AuthJWT(app.Config.JWTSecret),
		)

		r.Post("/v1/songs", app.SongsGenerate)
		r.Post("/v1/uploads", app.UploadAudio)
		r.Get("/v1/jobs", app.JobsList)
		r.Get("/v1/jobs/{job_id}", app.JobStatus)
		r.Get("/v1/credits", app.CreditsBalance)
		r.Get("/v1/credits/history", app.CreditsHistory)
		r.Get("/v1/notifications", app.NotificationsList)
		r.Post("/v1/notifications/{notification_id}/read", app.NotificationRead)
	})

	return r
}
