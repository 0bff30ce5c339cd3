package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string    `json:"status"`
	CrewLoaded bool      `json:"crew_loaded"`
	Crew       string    `json:"crew,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleHealth always answers 200; a missing crew provider is reported in the
// body, never as a hard failure, so the polling surface stays probeable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		CrewLoaded: true,
		Timestamp:  time.Now().UTC(),
	}

	if s.crew == nil {
		resp.Status = "unhealthy"
		resp.CrewLoaded = false
		if s.crewErr != nil {
			resp.Error = s.crewErr.Error()
		}
	} else {
		resp.Crew = s.crew.Name()
	}

	s.writeJSON(w, http.StatusOK, resp)
}
