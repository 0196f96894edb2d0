package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsehabit/devicelink/internal/connection"
	"github.com/pulsehabit/devicelink/internal/device"
)

// handleListDevices returns all connected devices, optionally filtered
// by status.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if status := r.URL.Query().Get("status"); status != "" {
		devices := s.engine.Registry.ListByStatus(ctx, device.ConnectionStatus(status))
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices := s.engine.Registry.List(ctx)
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleCatalog returns the supported device catalog names.
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"devices": device.CatalogNames()})
}

type connectRequest struct {
	DeviceName string `json:"deviceName"`
	Transport  string `json:"transport,omitempty"`
}

// handleConnectDevice pairs a catalog device and registers it.
//
// The transport field is a hint; pairing falls back through bluetooth,
// wifi and simulated transports as needed.
func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceName == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "deviceName is required")
		return
	}

	dev, err := s.engine.Manager.Connect(r.Context(), req.DeviceName, device.Transport(req.Transport))
	switch {
	case err == nil:
	case errors.Is(err, device.ErrUnknownDevice):
		writeNotFound(w, "unknown device: "+req.DeviceName)
		return
	case errors.Is(err, connection.ErrConnectionDeclined):
		writeConflict(w, "device declined the connection")
		return
	default:
		s.logger.Error("device connect failed", "device", req.DeviceName, "error", err)
		writeInternalError(w, "failed to connect device")
		return
	}

	instructions := s.engine.Assist.GetSetupInstructions(r.Context(), dev.DeviceName, string(dev.DeviceType))

	writeJSON(w, http.StatusCreated, map[string]any{
		"device":            dev,
		"setupInstructions": instructions,
	})
}

// handleGetDevice returns one device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.engine.Registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

type updateDeviceRequest struct {
	DisplayName          *string `json:"displayName,omitempty"`
	AutoSyncEnabled      *bool   `json:"autoSyncEnabled,omitempty"`
	SyncFrequencyMinutes *int    `json:"syncFrequencyMinutes,omitempty"`
}

// handleUpdateDevice patches the mutable sync settings of a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	dev, err := s.engine.Registry.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	if req.DisplayName != nil {
		dev.DisplayName = *req.DisplayName
	}
	if req.AutoSyncEnabled != nil {
		dev.AutoSyncEnabled = *req.AutoSyncEnabled
	}
	if req.SyncFrequencyMinutes != nil {
		dev.SyncFrequencyMinutes = *req.SyncFrequencyMinutes
	}

	if err := s.engine.Registry.Update(ctx, dev); err != nil {
		if errors.Is(err, device.ErrInvalidDevice) || errors.Is(err, device.ErrInvalidSyncFrequency) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to update device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDisconnectDevice removes a device and cascades to its triggers
// and automations.
func (s *Server) handleDisconnectDevice(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Manager.Disconnect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to disconnect device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
