package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/syncer"
)

// handleSyncDevice triggers a manual sync of one device.
//
// Query parameters:
//   - type: "manual" (default) or "webhook", recorded on the log entry
func (s *Server) handleSyncDevice(w http.ResponseWriter, r *http.Request) {
	syncType := syncer.SyncManual
	switch r.URL.Query().Get("type") {
	case "", "manual":
	case "webhook":
		syncType = syncer.SyncWebhook
	default:
		writeBadRequest(w, "invalid sync type")
		return
	}

	entry, err := s.engine.Scheduler.SyncDevice(r.Context(), chi.URLParam(r, "id"), syncType)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrSyncInProgress):
		writeConflict(w, "sync already in progress")
	case errors.Is(err, device.ErrNotConnected):
		writeConflict(w, "device is not connected")
	default:
		// The failed sync is already recorded in the log; surface the entry.
		if entry != nil {
			writeJSON(w, http.StatusOK, entry)
			return
		}
		writeInternalError(w, "sync failed")
	}
}

// handleSyncAll syncs every connected device concurrently.
func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	summary := s.engine.Scheduler.SyncAll(r.Context(), syncer.SyncManual)
	writeJSON(w, http.StatusOK, map[string]any{
		"synced":  summary.Synced,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
	})
}

// handleListSyncLogs returns the bounded sync history, newest last.
//
// Query parameters:
//   - device_id: filter to one device
//   - limit: cap on the number of entries returned
func (s *Server) handleListSyncLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var entries []syncer.SyncLogEntry
	if deviceID := r.URL.Query().Get("device_id"); deviceID != "" {
		entries = s.engine.Logs.ListByDevice(ctx, deviceID)
	} else {
		entries = s.engine.Logs.List(ctx)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries)})
}

// handleQueueStatus reports the offline action queue.
func (s *Server) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"length": s.engine.Queue.Len(),
		"items":  s.engine.Queue.Items(),
	})
}
