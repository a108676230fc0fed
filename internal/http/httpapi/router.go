package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/XIAOke8698/GRAS-Manager/internal/http/handlers"
	"github.com/XIAOke8698/GRAS-Manager/internal/middleware"
)

type RouterOptions struct {
	APIToken       string
	AllowedOrigins []string
	RatePerMinute  int
	Regions        middleware.RegionLookup
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	// Public
	r.Get("/v1/healthz", app.Health)
	r.Get("/metrics", app.Metrics)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RatePerMinute, time.Minute),
			middleware.StaticToken(opts.APIToken),
			middleware.Region(opts.Regions),
		)

		r.Get("/v1/options", app.SubmissionOptions)
		r.Get("/v1/stats", app.StatsSummary)
		r.Post("/v1/translate", app.TranslatePreview)

		r.Route("/v1/tasks", func(r chi.Router) {
			r.Get("/", app.ListTasks)
			r.Post("/", app.SubmitTask)
			r.Post("/refresh", app.RefreshAll)
			r.Route("/{task_id}", func(r chi.Router) {
				r.Get("/", app.GetTask)
				r.Delete("/", app.DeleteTask)
				r.Post("/refresh", app.RefreshTask)
				r.Post("/regenerate", app.RegenerateTask)
				r.Post("/download", app.DownloadTask)
				r.Get("/images.zip", app.ImagesZip)
			})
		})
	})

	return r
}
