package api

import "net/http"

type rootResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, rootResponse{
		Service:     "crewgate",
		Version:     Version,
		Description: "HTTP wrapper around an external crew for asynchronous job execution",
	})
}
