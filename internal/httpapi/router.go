// Package httpapi mounts the job server's HTTP surface on a chi router:
// the nine POST job-submission endpoints, the three GET query endpoints,
// and the ambient /metrics and /healthz routes, all bound to a single
// shared *app.Context.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nimbusdata/statsqueue/internal/app"
	"github.com/nimbusdata/statsqueue/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the complete HTTP surface for ctx.
func NewRouter(ctx *app.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", indexHandler)
	r.Get("/healthz", healthzHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/states_mean", submitHandler(ctx, types.StatesMean))
		r.Post("/state_mean", submitHandler(ctx, types.StateMean))
		r.Post("/best5", submitHandler(ctx, types.Best5))
		r.Post("/worst5", submitHandler(ctx, types.Worst5))
		r.Post("/global_mean", submitHandler(ctx, types.GlobalMean))
		r.Post("/diff_from_mean", submitHandler(ctx, types.DiffFromMean))
		r.Post("/state_diff_from_mean", submitHandler(ctx, types.StateDiffFromMean))
		r.Post("/mean_by_category", submitHandler(ctx, types.MeanByCategory))
		r.Post("/state_mean_by_category", submitHandler(ctx, types.StateMeanByCategory))

		r.Get("/get_results/{id}", getResultsHandler(ctx))
		r.Get("/graceful_shutdown", gracefulShutdownHandler(ctx))
		r.Get("/num_jobs", numJobsHandler(ctx))
		r.Get("/jobs", jobsHandler(ctx))
	})

	return r
}
