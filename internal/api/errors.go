package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/fault"
	"github.com/nerrad567/homepanel-core/internal/user"
)

// Error represents a structured error response.
type Error struct {
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Existing any    `json:"existing,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeNotApproved    = "not_approved"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps a domain error onto its HTTP status by fault kind.
// Role and authorisation failures are 403; 401 is kept for missing or
// invalid credentials.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, user.ErrInvalidCredentials) {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	switch kind := fault.Kind(err); kind {
	case fault.ErrNotFound:
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case fault.ErrForbidden:
		writeError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case fault.ErrUnauthorized:
		writeError(w, http.StatusForbidden, ErrCodeUnauthorized, err.Error())
	case fault.ErrInvalidInput:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case fault.ErrNotApproved:
		writeError(w, http.StatusConflict, ErrCodeNotApproved, err.Error())
	case fault.ErrConflict:
		resp := Error{Status: http.StatusConflict, Code: ErrCodeConflict, Message: err.Error()}
		var dup *device.DuplicateNameError
		if errors.As(err, &dup) {
			resp.Existing = dup.Existing
		}
		writeJSON(w, http.StatusConflict, resp)
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}
