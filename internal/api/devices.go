package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// Attribute request bodies. Pointers distinguish a missing field from zero.
type (
	temperatureRequest struct {
		Temperature *int `json:"temperature"`
	}
	brightnessRequest struct {
		Brightness *int `json:"brightness"`
	}
	colorRequest struct {
		Color *string `json:"color"`
	}
	speedRequest struct {
		Speed *int `json:"speed"`
	}
)

// handleListDevices returns the caller's house devices ordered by deviceId.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context(), principal(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleListPendingDevices returns devices awaiting admin approval.
func (s *Server) handleListPendingDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListPending(r.Context(), principal(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleAddDevice registers a device in the admin's house.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var in device.AddInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.devices.Add(r.Context(), principal(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.devices.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.devices.Delete(r.Context(), principal(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deviceId": id, "deleted": true})
}

func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.devices.Toggle(r.Context(), principal(r), chi.URLParam(r, "id"))
	s.writeDevice(w, r, d, err)
}

func (s *Server) handleApproveDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.devices.Approve(r.Context(), principal(r), chi.URLParam(r, "id"))
	s.writeDevice(w, r, d, err)
}

func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	var req temperatureRequest
	if !decodeField(w, r, &req, func() bool { return req.Temperature != nil }, "temperature") {
		return
	}
	d, err := s.devices.SetTemperature(r.Context(), principal(r), chi.URLParam(r, "id"), *req.Temperature)
	s.writeDevice(w, r, d, err)
}

func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	var req brightnessRequest
	if !decodeField(w, r, &req, func() bool { return req.Brightness != nil }, "brightness") {
		return
	}
	d, err := s.devices.SetBrightness(r.Context(), principal(r), chi.URLParam(r, "id"), *req.Brightness)
	s.writeDevice(w, r, d, err)
}

func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !decodeField(w, r, &req, func() bool { return req.Color != nil }, "color") {
		return
	}
	d, err := s.devices.SetColor(r.Context(), principal(r), chi.URLParam(r, "id"), *req.Color)
	s.writeDevice(w, r, d, err)
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !decodeField(w, r, &req, func() bool { return req.Speed != nil }, "speed") {
		return
	}
	d, err := s.devices.SetSpeed(r.Context(), principal(r), chi.URLParam(r, "id"), *req.Speed)
	s.writeDevice(w, r, d, err)
}

// handleDeviceActivity returns the per-device activity log, oldest first.
func (s *Server) handleDeviceActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := s.devices.Activity(r.Context(), principal(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "activity": entries, "count": len(entries)})
}

func (s *Server) writeDevice(w http.ResponseWriter, r *http.Request, d *device.Device, err error) {
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// decodeField decodes the body into req and checks the named field was
// present. It writes the 400 response itself and reports false on failure.
func decodeField(w http.ResponseWriter, r *http.Request, req any, present func() bool, field string) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	if !present() {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, field+" is required")
		return false
	}
	return true
}
