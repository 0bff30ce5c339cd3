package api

import "net/http"

type crewInfoResponse struct {
	Provider  string `json:"provider,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleCrewInfo(w http.ResponseWriter, _ *http.Request) {
	if s.crew == nil {
		resp := crewInfoResponse{Available: false}
		if s.crewErr != nil {
			resp.Error = s.crewErr.Error()
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	s.writeJSON(w, http.StatusOK, crewInfoResponse{
		Provider:  s.crew.Name(),
		Available: true,
	})
}
