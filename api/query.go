package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coursechat/coursechat/internal/chat"
	"github.com/coursechat/coursechat/internal/store"
	"github.com/coursechat/coursechat/internal/tools"
)

// maxQueryBody bounds the request body size for /api/query.
const maxQueryBody = 64 << 10

// QueryRequest is the body of POST /api/query. SessionID is optional;
// when absent or unknown a new session is created.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse carries the answer, its sources, and the session to use
// for follow-up questions.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ans, err := s.system.Query(r.Context(), req.SessionID, req.Query)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		switch {
		case errors.Is(err, chat.ErrGenerationFailed),
			errors.Is(err, store.ErrEmbeddingUnavailable),
			errors.Is(err, store.ErrStoreUnavailable):
			s.writeError(w, http.StatusBadGateway, "answer generation failed")
		default:
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	sources := ans.Sources
	if sources == nil {
		sources = []tools.Source{}
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    ans.Answer,
		Sources:   sources,
		SessionID: ans.SessionID,
	})
}

// CoursesResponse is the body of GET /api/courses.
type CoursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	stats, err := s.system.Stats(r.Context())
	if err != nil {
		s.logger.Error("course stats failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not load course stats")
		return
	}

	titles := stats.CourseTitles
	if titles == nil {
		titles = []string{}
	}
	s.writeJSON(w, http.StatusOK, CoursesResponse{
		TotalCourses: stats.CourseCount,
		CourseTitles: titles,
	})
}
