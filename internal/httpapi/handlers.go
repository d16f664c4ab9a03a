package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nimbusdata/statsqueue/internal/app"
	"github.com/nimbusdata/statsqueue/pkg/types"
)

// jobRequest is the request body every POST job-submission endpoint
// accepts. state is ignored by one-argument job kinds.
type jobRequest struct {
	Question string `json:"question"`
	State    string `json:"state"`
}

type jobIDResponse struct {
	JobID int `json:"job_id"`
}

// submitHandler returns a handler bound to one job kind that decodes the
// request body, submits the job, and returns its id. Submit still
// allocates an id for an empty question — validating that is the
// computation layer's job, not ingress's.
func submitHandler(ctx *app.Context, kind types.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Status: "error", Reason: "invalid request body"})
			return
		}

		id, err := ctx.Submit(kind, types.JobArgs{Question: req.Question, State: req.State})
		if err != nil {
			if errors.Is(err, app.ErrShuttingDown) {
				writeJSON(w, http.StatusBadRequest, errShuttingDown())
				return
			}
			if errors.Is(err, app.ErrQueueFull) {
				writeJSON(w, http.StatusServiceUnavailable, errQueueFull())
				return
			}
			writeJSON(w, http.StatusInternalServerError, errInternal())
			return
		}

		writeJSON(w, http.StatusOK, jobIDResponse{JobID: id})
	}
}

// getResultsHandler implements GET /api/get_results/<id>.
func getResultsHandler(ctx *app.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errInvalidJobID())
			return
		}

		body, err := ctx.Poll(id)
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		case errors.Is(err, app.ErrInvalidJobID):
			writeJSON(w, http.StatusBadRequest, errInvalidJobID())
		default:
			writeJSON(w, http.StatusInternalServerError, errInvalidJobID())
		}
	}
}

// gracefulShutdownHandler implements GET /api/graceful_shutdown.
func gracefulShutdownHandler(ctx *app.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctx.RequestShutdown())
	}
}

type numPendingResponse struct {
	NumPendingJob int `json:"num_pending_job"`
}

// numJobsHandler implements GET /api/num_jobs.
func numJobsHandler(ctx *app.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, numPendingResponse{NumPendingJob: ctx.NumPending()})
	}
}

// jobsHandler implements GET /api/jobs.
func jobsHandler(ctx *app.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(ctx.JobsStatus())
	}
}

// healthzHandler is the ambient liveness probe.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// indexHandler mirrors the reference implementation's friendly root route
// listing the endpoints this server exposes.
func indexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "stat-job-server",
		"routes": []string{
			"/api/states_mean", "/api/state_mean", "/api/best5", "/api/worst5",
			"/api/global_mean", "/api/diff_from_mean", "/api/state_diff_from_mean",
			"/api/mean_by_category", "/api/state_mean_by_category",
			"/api/get_results/{id}", "/api/graceful_shutdown", "/api/num_jobs", "/api/jobs",
			"/metrics", "/healthz",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(mustMarshal(v))
}
