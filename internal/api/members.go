package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homepanel-core/internal/tenancy"
	"github.com/nerrad567/homepanel-core/internal/user"
)

type changeRoleRequest struct {
	Role tenancy.Role `json:"role"`
}

type photoRequest struct {
	Photo string `json:"photo"`
}

// handleListMembers returns the accounts of the caller's house, admin first.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.users.ListMembers(r.Context(), principal(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var in user.MemberInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	u, err := s.users.AddMember(r.Context(), principal(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleAuthorizeMember(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Authorize(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	u, err := s.users.ChangeRole(r.Context(), principal(r), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.users.Delete(r.Context(), principal(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": id, "deleted": true})
}

// handleUpdateProfile edits the caller's own name and photo.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in user.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), principal(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	u, err := s.users.UpdatePhoto(r.Context(), principal(r), chi.URLParam(r, "id"), req.Photo)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
