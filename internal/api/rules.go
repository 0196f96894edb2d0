package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsehabit/devicelink/internal/automation"
	"github.com/pulsehabit/devicelink/internal/geofence"
	"github.com/pulsehabit/devicelink/internal/trigger"
)

// handleListTriggers returns all habit triggers.
func (s *Server) handleListTriggers(w http.ResponseWriter, r *http.Request) {
	triggers := s.engine.Triggers.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"triggers": triggers, "count": len(triggers)})
}

// handleCreateTrigger inserts a new habit trigger.
func (s *Server) handleCreateTrigger(w http.ResponseWriter, r *http.Request) {
	var t trigger.HabitTrigger
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.engine.Triggers.Create(r.Context(), &t); err != nil {
		writeInternalError(w, "failed to create trigger")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleDeleteTrigger removes a habit trigger by ID.
func (s *Server) handleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Triggers.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, trigger.ErrTriggerNotFound) {
			writeNotFound(w, "trigger not found")
			return
		}
		writeInternalError(w, "failed to delete trigger")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListFences returns all geofences.
func (s *Server) handleListFences(w http.ResponseWriter, r *http.Request) {
	fences := s.engine.Fences.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"geofences": fences, "count": len(fences)})
}

// handleCreateFence inserts a new geofence.
func (s *Server) handleCreateFence(w http.ResponseWriter, r *http.Request) {
	var f geofence.GeoFence
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.engine.Fences.Create(r.Context(), &f); err != nil {
		if errors.Is(err, geofence.ErrInvalidFence) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to create geofence")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// handleDeleteFence removes a geofence by ID.
func (s *Server) handleDeleteFence(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Fences.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, geofence.ErrFenceNotFound) {
			writeNotFound(w, "geofence not found")
			return
		}
		writeInternalError(w, "failed to delete geofence")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type positionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// handlePosition feeds a location sample through the geofence engine.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	fired := s.engine.UpdatePosition(r.Context(), geofence.Position{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	writeJSON(w, http.StatusOK, map[string]any{"fired": fired, "count": len(fired)})
}

// handleListAutomations returns all automations.
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	automations := s.engine.Automations.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"automations": automations, "count": len(automations)})
}

// handleCreateAutomation inserts a new automation.
func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var a automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.engine.Automations.Create(r.Context(), &a); err != nil {
		if errors.Is(err, automation.ErrInvalidAutomation) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to create automation")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleDeleteAutomation removes an automation by ID.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Automations.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to delete automation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecuteAutomation runs an automation immediately.
func (s *Server) handleExecuteAutomation(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Automations.Execute(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": "executed"})
	case errors.Is(err, automation.ErrAutomationNotFound):
		writeNotFound(w, "automation not found")
	case errors.Is(err, automation.ErrExecutionFailed):
		writeJSON(w, http.StatusOK, map[string]any{"status": "partial", "error": err.Error()})
	default:
		writeInternalError(w, "failed to execute automation")
	}
}

type voiceRequest struct {
	Command string   `json:"command"`
	Habits  []string `json:"habits,omitempty"`
}

// handleVoiceCommand interprets a voice command against known habits.
func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "command is required")
		return
	}

	parsed := s.engine.HandleVoiceCommand(r.Context(), req.Command, req.Habits)
	writeJSON(w, http.StatusOK, parsed)
}
