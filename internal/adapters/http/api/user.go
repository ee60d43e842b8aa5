package api

import (
	"net/http"
)

// handleProfile handles GET /api/user/profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, profileResponse{UserID: ownerFrom(r.Context())})
	return nil
}

// handleSave handles POST /api/user/analysis/save with client-computed scores.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) error {
	const op = "api.save_analysis"
	var req saveRequest
	if err := decodeJSON(w, r, maxJSONBodySize, &req); err != nil {
		return Wrap(op, err)
	}
	rec, err := s.deps.SaveResults(r.Context(), ownerFrom(r.Context()), req.VideoURL, req.Results)
	if err != nil {
		return Wrap(op, err)
	}
	writeJSON(w, http.StatusCreated, rec)
	return nil
}
