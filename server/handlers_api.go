package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SessionResponse is the visitor's auth state as JSON.
type SessionResponse struct {
	Status  string `json:"status"`
	Subject string `json:"subject,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := visitorFrom(r).Auth.State()
		res := SessionResponse{
			Status:  state.String(),
			Subject: state.Session().SubjectID(),
			Email:   state.Session().Email(),
			IsAdmin: state.IsAdmin(),
		}
		if profile := state.Profile(); profile != nil {
			res.Role = string(profile.Role)
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) CartAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, visitorFrom(r).Cart.Snapshot())
	}
}
