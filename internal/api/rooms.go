package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homepanel-core/internal/room"
)

type createRoomRequest struct {
	Name string `json:"name"`
}

type applyMoodRequest struct {
	Mood string `json:"mood"`
}

// handleListRooms returns the caller's rooms after synthesising any that
// devices reference but that do not exist yet.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.ListRooms(r.Context(), principal(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// handleCreateRoom creates a room, or returns the existing one of that name.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	rm, err := s.rooms.CreateRoom(r.Context(), principal(r), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

func (s *Server) handleListMoods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"moods": room.Moods()})
}

func (s *Server) handleApplyMood(w http.ResponseWriter, r *http.Request) {
	var req applyMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.rooms.ApplyMood(r.Context(), principal(r), chi.URLParam(r, "id"), req.Mood)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeleteRoom removes a room together with every device located in it.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	res, err := s.rooms.DeleteRoom(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
