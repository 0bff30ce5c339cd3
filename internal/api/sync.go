package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/crewgate/crewgate/internal/crew"
)

// syncResultResponse is returned by the blocking submission endpoint.
type syncResultResponse struct {
	Status      string    `json:"status"`
	Result      string    `json:"result"`
	CompletedAt time.Time `json:"completed_at"`
}

// handleRunJobSync executes the crew on the request context and blocks until
// it finishes. No registry record is created; the outcome exists only in the
// response.
func (s *Server) handleRunJobSync(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}

	result, err := s.runner.ExecuteSync(r.Context(), req.Inputs)
	if errors.Is(err, crew.ErrNotLoaded) {
		s.writeError(w, http.StatusServiceUnavailable, "crew is not available")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "crew execution failed: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, syncResultResponse{
		Status:      "completed",
		Result:      result,
		CompletedAt: time.Now().UTC(),
	})
}
