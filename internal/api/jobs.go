package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewgate/crewgate/internal/crew"
	"github.com/crewgate/crewgate/internal/model"
	"github.com/crewgate/crewgate/internal/runner"
	"github.com/crewgate/crewgate/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// submitJobRequest is the JSON body for POST /jobs and POST /jobs/sync.
type submitJobRequest struct {
	Inputs map[string]any `json:"inputs"`
}

// submitJobResponse acknowledges an accepted asynchronous submission.
type submitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// listJobsResponse wraps the full job listing.
type listJobsResponse struct {
	Jobs []*model.Job `json:"jobs"`
}

// jobResultResponse is returned once a job has completed.
type jobResultResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	Result      string     `json:"result"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}

	j := &model.Job{
		ID:        model.NewID(),
		Status:    model.StatusPending,
		Inputs:    req.Inputs,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.runner.Submit(r.Context(), j); err != nil {
		switch {
		case errors.Is(err, crew.ErrNotLoaded):
			s.writeError(w, http.StatusServiceUnavailable, "crew is not available")
		case errors.Is(err, runner.ErrQueueFull):
			s.writeError(w, http.StatusServiceUnavailable, "job queue is full")
		default:
			s.logger.Error("submit job", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to submit job")
		}
		return
	}

	s.logger.Info("job submitted", "job_id", j.ID)
	s.writeJSON(w, http.StatusOK, submitJobResponse{JobID: j.ID, Status: "started"})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	j, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	s.writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleGetJobResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	j, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job result", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	switch j.Status {
	case model.StatusPending, model.StatusRunning:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"detail": "job still running"})
	case model.StatusFailed:
		s.writeError(w, http.StatusInternalServerError, "job failed: "+j.Error)
	default:
		s.writeJSON(w, http.StatusOK, jobResultResponse{
			JobID:       j.ID,
			Status:      j.Status,
			Result:      j.Result,
			CompletedAt: j.CompletedAt,
		})
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		s.logger.Error("list jobs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	if jobs == nil {
		jobs = []*model.Job{}
	}

	s.writeJSON(w, http.StatusOK, listJobsResponse{Jobs: jobs})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("delete job", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "job deleted"})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
