package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes data as a JSON response. Encoding failures after
// WriteHeader cannot reach the client anymore, so they are only logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding json response", "error", err)
	}
}

// ErrorResponse is the JSON shape of all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
