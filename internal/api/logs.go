package api

import (
	"net/http"
	"strconv"
)

// handleListLogs returns the caller's house audit trail, most recent first.
//
// Query parameters:
//   - limit: max results (default and max 50)
//   - offset: pagination offset
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	result, err := s.audit.List(r.Context(), principal(r), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListSecurityLogs returns SECURITY and PASSWORD_REQUEST entries. Admin only.
func (s *Server) handleListSecurityLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	result, err := s.audit.ListSecurity(r.Context(), principal(r), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// pageParams reads limit and offset, ignoring malformed values. The audit
// repository clamps the limit.
func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
